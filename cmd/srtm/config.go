package main

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-srtm"
)

const (
	defaultDataDir   = "."
	defaultCacheSize = 32
	defaultLogLevel  = "info"
	defaultAddr      = ":8080"
)

func defaultParallelism() int {
	return runtime.NumCPU()
}

// Config holds the command configuration.
type Config struct {
	DataDir     string
	CacheSize   int
	Parallelism int
	LogLevel    string
	LogConsole  bool
}

// LoadConfig loads the configuration from cmd's flags and the environment.
// Flags take precedence over environment variables.
func LoadConfig(cmd *cobra.Command) Config {
	return Config{
		DataDir:     getConfigString(cmd, "data-dir", []string{"SRTM_DATA_DIR", "ELEV_DATA_DIR"}, defaultDataDir),
		CacheSize:   getConfigInt(cmd, "cache-size", "SRTM_CACHE_SIZE", defaultCacheSize),
		Parallelism: getConfigInt(cmd, "parallelism", "SRTM_PARALLELISM", defaultParallelism()),
		LogLevel:    getConfigString(cmd, "log-level", []string{"LOG_LEVEL"}, defaultLogLevel),
		LogConsole:  getConfigBool(cmd, "log-console", "LOG_CONSOLE", false),
	}
}

// newTileSet returns a new tile set that can hold at least minCacheSize tiles.
func (a *app) newTileSet(minCacheSize int) (*srtm.TileSet, error) {
	return srtm.NewTileSet(
		srtm.WithFS(os.DirFS(a.config.DataDir)),
		srtm.WithCacheSize(max(a.config.CacheSize, minCacheSize, 1)),
		srtm.WithTileOptions(srtm.WithLogger(a.logger)),
		srtm.WithTileSetLogger(a.logger),
	)
}

// getConfigString gets a string value from a flag, then the first set
// environment variable, then a default.
func getConfigString(cmd *cobra.Command, flagName string, envNames []string, defaultValue string) string {
	if cmd.Flags().Changed(flagName) {
		value, _ := cmd.Flags().GetString(flagName)
		return value
	}
	for _, envName := range envNames {
		if value := os.Getenv(envName); value != "" {
			return value
		}
	}
	return defaultValue
}

func getConfigInt(cmd *cobra.Command, flagName, envName string, defaultValue int) int {
	if cmd.Flags().Changed(flagName) {
		value, _ := cmd.Flags().GetInt(flagName)
		return value
	}
	if value := os.Getenv(envName); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getConfigBool(cmd *cobra.Command, flagName, envName string, defaultValue bool) bool {
	if cmd.Flags().Changed(flagName) {
		value, _ := cmd.Flags().GetBool(flagName)
		return value
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envName))) {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return defaultValue
}
