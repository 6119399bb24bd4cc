package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/fsindex/fsindex"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Index    IndexConfig    `mapstructure:"index"`
	Search   SearchConfig   `mapstructure:"search"`
}

// DatabaseConfig stores catalog database connection details.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// IndexConfig stores indexing pipeline settings.
type IndexConfig struct {
	// Workers bounds the file-scan worker pool; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
	// BatchSize is the number of file rows per bulk-insert transaction.
	BatchSize int `mapstructure:"batchSize"`
	// Exclude holds gitignore-style patterns skipped during collection.
	Exclude []string `mapstructure:"exclude"`
}

// SearchConfig stores search engine settings.
type SearchConfig struct {
	// Limit caps the number of results returned per query.
	Limit int `mapstructure:"limit"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("database.dsn", internal.DefaultDatabaseDSN)
	viper.SetDefault("index.workers", 0)
	viper.SetDefault("index.batchSize", 5000)
	viper.SetDefault("index.exclude", []string{})
	viper.SetDefault("search.limit", 1000)

	viper.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. index.batchSize becomes FSINDEX_INDEX_BATCHSIZE

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
