// Package cli provides the command-line interface for svindex.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/geostat-labs/svindex/internal/cli/commands"
	"github.com/geostat-labs/svindex/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "svindex",
		Short: "svindex - Census-derived vulnerability index pipeline",
		Long: `svindex pulls raw statistical variables from the census API, derives
alias fields through configurable arithmetic expressions, computes
percentile ranks, and writes a scored geography table as CSV.

Variables are declared in a CSV table (alias,dataset,variable); successful
fetches are cached so a run can complete while the API is unavailable.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags; unset flags defer to env vars, svindex.yaml
	// and built-in defaults.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./svindex.yaml)")
	rootCmd.PersistentFlags().StringP("state", "s", "", "FIPS code of the state or territory")
	rootCmd.PersistentFlags().IntP("year", "y", 0, "Census year")
	rootCmd.PersistentFlags().StringP("geography", "g", "", "API geography keyword (place, county, tract, ...)")
	rootCmd.PersistentFlags().String("variables", "", "Path to the variable table CSV")
	rootCmd.PersistentFlags().StringP("outfile", "o", "", "Destination CSV path")
	rootCmd.PersistentFlags().String("cache-dir", "", "Snapshot cache directory")
	rootCmd.PersistentFlags().String("api-key", "", "Optional census API key")
	rootCmd.PersistentFlags().String("base-url", "", "Census API root URL")
	rootCmd.PersistentFlags().Int("parallel", 0, "Datasets fetched concurrently")
	rootCmd.PersistentFlags().Bool("refresh-on-fallback", false, "Re-stamp snapshots served from cache")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewGeographiesCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
