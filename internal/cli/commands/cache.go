package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/geostat-labs/svindex/internal/cache"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage stored dataset snapshots",
	}
	cmd.AddCommand(newCacheLsCommand())
	cmd.AddCommand(newCacheRunsCommand())
	cmd.AddCommand(newCacheClearCommand())
	return cmd
}

func newCacheRunsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			logger := getLogger(cmd)

			store, err := cache.Open(cfg.Cache.Dir, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no runs)")
				return nil
			}

			w := table.NewWriter()
			w.SetOutputMirror(cmd.OutOrStdout())
			w.SetStyle(table.StyleLight)
			w.AppendHeader(table.Row{"id", "state", "year", "geography", "status", "started at", "error"})
			for _, r := range runs {
				w.AppendRow(table.Row{
					r.ID, r.State, r.Year, r.Geography, r.Status,
					r.StartedAt.Format("2006-01-02 15:04:05"), r.Error,
				})
			}
			w.Render()
			return nil
		},
	}
}

func newCacheLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			logger := getLogger(cmd)

			store, err := cache.Open(cfg.Cache.Dir, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snapshots, err := store.List()
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no snapshots)")
				return nil
			}

			w := table.NewWriter()
			w.SetOutputMirror(cmd.OutOrStdout())
			w.SetStyle(table.StyleLight)
			w.AppendHeader(table.Row{"dataset", "state", "year", "geography", "rows", "cols", "stored at"})
			for _, s := range snapshots {
				w.AppendRow(table.Row{
					s.Dataset, s.State, s.Year, s.Geography,
					s.RowCount, s.ColCount, s.StoredAt.Format("2006-01-02 15:04:05"),
				})
			}
			w.Render()
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	var (
		state     string
		year      int
		geography string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored snapshots",
		Long: `Remove snapshots matching the given scope. With no flags, every
snapshot is removed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			logger := getLogger(cmd)

			store, err := cache.Open(cfg.Cache.Dir, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear(state, year, geography)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Only snapshots for this state FIPS code")
	cmd.Flags().IntVar(&year, "year", 0, "Only snapshots for this year")
	cmd.Flags().StringVar(&geography, "geography", "", "Only snapshots for this geography")

	return cmd
}
