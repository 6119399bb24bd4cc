package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/fsindex/fsindex"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	// Viper keeps global state; start each test from a clean slate
	viper.Reset()

	// Save original directory
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	// Create temporary directory for testing
	tempDir, err := os.MkdirTemp("", "fsindex-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Change to temp directory so no stray config file is picked up
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultDatabaseDSN, cfg.Database.DSN)
	assert.Equal(suite.T(), 0, cfg.Index.Workers)
	assert.Equal(suite.T(), 5000, cfg.Index.BatchSize)
	assert.Empty(suite.T(), cfg.Index.Exclude)
	assert.Equal(suite.T(), 1000, cfg.Search.Limit)
}

func (suite *ConfigTestSuite) TestLoadConfigFromFile() {
	configYAML := `
database:
  dsn: "file:/tmp/custom.db"
index:
  workers: 4
  batchSize: 250
  exclude:
    - "node_modules/"
    - "*.tmp"
search:
  limit: 50
`
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(configYAML), 0o644))

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "file:/tmp/custom.db", cfg.Database.DSN)
	assert.Equal(suite.T(), 4, cfg.Index.Workers)
	assert.Equal(suite.T(), 250, cfg.Index.BatchSize)
	assert.Equal(suite.T(), []string{"node_modules/", "*.tmp"}, cfg.Index.Exclude)
	assert.Equal(suite.T(), 50, cfg.Search.Limit)
}
