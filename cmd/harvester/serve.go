package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/romangod6/sitemap-harvester/config"
	"github.com/romangod6/sitemap-harvester/internal/api"
	"github.com/romangod6/sitemap-harvester/internal/fetcher"
	"github.com/romangod6/sitemap-harvester/internal/harvester"
	"github.com/romangod6/sitemap-harvester/internal/models"
	"github.com/romangod6/sitemap-harvester/internal/prober"
	"github.com/romangod6/sitemap-harvester/internal/storage"
)

var maxConcurrentHarvests int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the harvester service and HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&maxConcurrentHarvests, "max-concurrent", 5, "Maximum harvests running at once")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	store, err := openStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize database tables
	if err := store.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database tables: %v", err)
	}

	httpFetcher := fetcher.NewHTTPFetcher(cfg.Harvester.UserAgent, 30*time.Second)
	h := harvester.New(store, httpFetcher, &harvester.Config{
		MaxDepth:      cfg.Harvester.MaxDepth,
		MaxDocuments:  cfg.Harvester.MaxDocuments,
		FailurePolicy: cfg.Harvester.FailurePolicy,
		Timeout:       cfg.GetHarvestTimeout(),
	})

	// Initialize API server
	server := api.NewServer(cfg.Server.Port, store, h)

	// Setup periodic harvesting
	ticker := time.NewTicker(cfg.GetFetchDuration())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			select {
			case <-ticker.C:
				log.Println("Starting periodic harvest...")
				runAllHarvests(ctx, store, h, cfg, maxConcurrentHarvests)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start the API server
	go func() {
		log.Printf("Starting API server on port %d", cfg.Server.Port)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()

	// Wait for shutdown
	waitForShutdown(cancel, server)
	return nil
}

func openStore(url string) (storage.Store, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return storage.NewPostgresStore(url)
	}
	return storage.NewSQLiteStore(strings.TrimPrefix(url, "sqlite://"))
}

func runAllHarvests(ctx context.Context, store storage.Store, h *harvester.Harvester, cfg *config.Config, maxConcurrent int) {
	// Fetch all configured sources
	sources, err := store.ListSources(ctx)
	if err != nil {
		log.Printf("Failed to fetch sources: %v", err)
		return
	}

	if len(sources) == 0 {
		log.Println("No sources to harvest")
		return
	}

	now := time.Now()

	// Create a semaphore channel to limit concurrency
	semaphore := make(chan struct{}, maxConcurrent)
	wg := sync.WaitGroup{}

	for _, source := range sources {
		// Skip if a harvest is already running
		if source.Status == "Running" {
			log.Printf("Skipping source %s (%s) as it's already running", source.Name, source.ID)
			continue
		}

		// Skip if it's not time to run yet
		if source.NextRun != nil && now.Before(*source.NextRun) {
			log.Printf("Skipping source %s (%s) as it's not scheduled yet", source.Name, source.ID)
			continue
		}

		sourceCopy := *source
		wg.Add(1)

		// Acquire a spot in the semaphore
		semaphore <- struct{}{}

		go func(source models.SitemapSource) {
			defer wg.Done()
			defer func() { <-semaphore }()

			log.Printf("Starting harvest for %s...", source.SitemapURL)
			harvestSource(ctx, store, h, cfg, source)
		}(sourceCopy)
	}

	wg.Wait()
	log.Println("All harvests completed")
}

func harvestSource(ctx context.Context, store storage.Store, h *harvester.Harvester, cfg *config.Config, source models.SitemapSource) {
	source.Status = "Running"
	if err := store.UpdateSource(ctx, &source); err != nil {
		log.Printf("Failed to update status for %s: %v", source.Name, err)
		return
	}

	run, err := h.Harvest(ctx, &source)
	now := time.Now()

	if err != nil {
		log.Printf("Harvest failed for %s: %v", source.SitemapURL, err)
		source.Status = "Error"
		source.Errors = append(source.Errors, err.Error())
	} else {
		log.Printf("Harvest completed for %s: %d URLs found", source.SitemapURL, run.URLsFound)
		source.Status = "Completed"
		source.LastRun = &now

		interval := source.FetchInterval
		if interval == "" {
			interval = cfg.Harvester.FetchInterval
		}
		if d, parseErr := time.ParseDuration(interval); parseErr == nil {
			nextRun := now.Add(d)
			source.NextRun = &nextRun
		}
	}

	source.UpdatedAt = now
	if updateErr := store.UpdateSource(ctx, &source); updateErr != nil {
		log.Printf("Failed to update source %s: %v", source.Name, updateErr)
	}

	if err == nil && cfg.Harvester.ProbeURLs {
		probeSource(ctx, store, cfg, source)
	}
}

func probeSource(ctx context.Context, store storage.Store, cfg *config.Config, source models.SitemapSource) {
	urls, err := store.ListURLs(ctx, source.ID, 500, 0)
	if err != nil {
		log.Printf("Failed to list URLs for probing %s: %v", source.Name, err)
		return
	}

	p := prober.New(store, cfg.Harvester.UserAgent)
	if err := p.Probe(ctx, source.ID, urls); err != nil {
		log.Printf("Probe failed for %s: %v", source.Name, err)
	}
}

func waitForShutdown(cancel context.CancelFunc, server *api.Server) {
	// Handle system signals for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down...")
	cancel()

	// Graceful server shutdown
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	log.Println("Server shut down gracefully")
}
