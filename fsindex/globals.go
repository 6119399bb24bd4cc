package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultConfigPath is the default path to the config directory
	DefaultAppName          = "fsindex"
	DefaultConfigPath       = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCatalogDBPath    = filepath.Join(DefaultConfigPath, "catalog.db")
	DefaultGlobalConfigFile = filepath.Join(DefaultConfigPath, "config.yaml")

	// Default Database settings
	DefaultDatabaseDSN = "file:" + DefaultCatalogDBPath
	DefaultMemoryDSN   = "file::memory:?cache=shared"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			// Last resort - use tmp directory
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
