// This file defines the configuration structure for the application.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Catalog struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		// PageLimit bounds how many pages the importer will walk per
		// phase, whatever bound the catalog API reports.
		PageLimit int `mapstructure:"page_limit"`
	} `mapstructure:"catalog"`
	Import struct {
		// TickSeconds is the period of the import runner's ticker.
		TickSeconds int `mapstructure:"tick_seconds"`
	} `mapstructure:"import"`
	// SyncInterval is the trending-sync period in minutes. 0 disables it.
	SyncInterval int `mapstructure:"sync_interval"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")

	// Environment variable overrides, e.g. CINETRACK_CATALOG_API_KEY
	// overrides the `catalog.api_key` key.
	viper.SetEnvPrefix("CINETRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("database.path", "./cinetrack.db")
	viper.SetDefault("catalog.base_url", "https://api.themoviedb.org/3")
	viper.SetDefault("catalog.page_limit", 500)
	viper.SetDefault("import.tick_seconds", 1)
	viper.SetDefault("sync_interval", 360)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
