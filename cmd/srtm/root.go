package main

import (
	"errors"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// An app holds the state shared by all commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	config Config
	logger zerolog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		logger: zerolog.Nop(),
	}

	rootCmd := &cobra.Command{
		Use:   "srtm",
		Short: "Read elevations from SRTM .hgt tiles",
		Long: `srtm reads elevations from SRTM .hgt tiles.

Tiles are looked up by name in the data directory, for example N44E015.hgt
for a coordinate at 44.44N 15.07E. SRTM0.5, SRTM1, and SRTM3 tiles are
supported and recognized by their size.

Configuration can be set with flags, environment variables, or a .env file.
Flags take precedence over environment variables.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			a.config = LoadConfig(cmd)
			a.logger = newLogger(a.config, a.stderr)
			return nil
		},
	}

	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.StringP("data-dir", "d", defaultDataDir, "directory containing .hgt tiles")
	persistentFlags.Int("cache-size", defaultCacheSize, "maximum number of tiles kept in memory")
	persistentFlags.IntP("parallelism", "j", defaultParallelism(), "maximum number of tiles loaded in parallel")
	persistentFlags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	persistentFlags.Bool("log-console", false, "log human-readable output instead of JSON")

	rootCmd.AddCommand(
		a.newElevationCmd(),
		a.newInfoCmd(),
		a.newGPXCmd(),
		a.newServeCmd(),
	)

	return rootCmd
}
