package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		URL string
	}
	Server struct {
		Port int
	}
	Harvester struct {
		UserAgent     string
		FetchInterval string
		MaxDepth      int
		MaxDocuments  int
		FailurePolicy string
		Timeout       string
		ProbeURLs     bool
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("harvester.useragent", "Sitemap Harvester Bot v1.0")
	viper.SetDefault("harvester.fetchinterval", "24h")
	viper.SetDefault("harvester.maxdepth", 10)
	viper.SetDefault("harvester.maxdocuments", 1000)
	viper.SetDefault("harvester.failurepolicy", "skip")
	viper.SetDefault("harvester.timeout", "30m")
	viper.SetDefault("harvester.proburls", false)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) GetFetchDuration() time.Duration {
	duration, err := time.ParseDuration(c.Harvester.FetchInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return duration
}

func (c *Config) GetHarvestTimeout() time.Duration {
	duration, err := time.ParseDuration(c.Harvester.Timeout)
	if err != nil {
		return 30 * time.Minute
	}
	return duration
}
