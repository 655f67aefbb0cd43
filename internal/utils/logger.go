package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HarvestLogger writes one harvest's log to both stdout and a per-source
// file under logs/.
type HarvestLogger struct {
	file   *os.File
	logger *log.Logger
}

func NewHarvestLogger(sourceName string) (*HarvestLogger, error) {
	sanitized := strings.ReplaceAll(strings.ToLower(sourceName), " ", "_")
	if sanitized == "" {
		sanitized = "unnamed"
	}

	sourceDir := filepath.Join("logs", sanitized)
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(sourceDir, fmt.Sprintf("harvest_%s_%s.log", sanitized, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	multiWrite := io.MultiWriter(os.Stdout, file)
	logger := log.New(multiWrite, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return &HarvestLogger{
		file:   file,
		logger: logger,
	}, nil
}

func (hl *HarvestLogger) LogInfo(format string, v ...interface{}) {
	hl.log("INFO", format, v...)
}

func (hl *HarvestLogger) LogError(format string, v ...interface{}) {
	hl.log("ERROR", format, v...)
}

func (hl *HarvestLogger) LogDebug(format string, v ...interface{}) {
	hl.log("DEBUG", format, v...)
}

func (hl *HarvestLogger) log(level string, format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	hl.logger.Printf("[%s] %s", level, message)
}

func (hl *HarvestLogger) Close() error {
	return hl.file.Close()
}
