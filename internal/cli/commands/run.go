package commands

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/geostat-labs/svindex/internal/cache"
	"github.com/geostat-labs/svindex/internal/census"
	"github.com/geostat-labs/svindex/internal/engine"
	"github.com/geostat-labs/svindex/internal/frame"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Preview int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch data and compute the scored output table",
		Long: `Download every dataset named in the variable table (or reuse cached
snapshots when the API is unavailable), merge them on the geography key,
evaluate alias expressions in dependency order, and write the result CSV.`,
		Example: `  # Run with the defaults from svindex.yaml
  svindex run

  # Colorado tracts for 2020, with an API key
  svindex run --state 08 --geography tract --year 2020 --api-key $KEY

  # Write somewhere specific and skip the preview
  svindex run -o scores.csv --preview 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Preview, "preview", 5, "Preview rows to print (0 disables)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cfg := getConfig(cmd)
	logger := getLogger(cmd)

	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := cache.Open(cfg.Cache.Dir, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := census.NewClient(cfg.API.BaseURL, cfg.API.Key, cfg.API.Timeout, logger)

	eng, err := engine.New(engine.Config{
		Project: cfg,
		Client:  client,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	f, err := os.Create(cfg.Outfile)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := result.Table.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.Preview > 0 {
		renderPreview(cmd, result.Table, opts.Preview)
	}
	_, _ = fmt.Fprintf(out, "Run %s: %d rows x %d columns in %s\n",
		result.RunID, result.Table.Rows(), len(result.Table.Columns()), time.Since(start).Round(time.Millisecond))
	for dataset, source := range result.Sources {
		_, _ = fmt.Fprintf(out, "  dataset %s: %s\n", dataset, source)
	}
	if n := len(result.SoftFailures); n > 0 {
		_, _ = fmt.Fprintf(out, "  %d cells recovered as NaN (see warnings above)\n", n)
	}
	_, _ = fmt.Fprintf(out, "Saved results to %s\n", cfg.Outfile)
	return nil
}

// previewColumnLimit bounds how many columns the preview table renders.
const previewColumnLimit = 10

func renderPreview(cmd *cobra.Command, t *frame.Table, maxRows int) {
	cols := t.Columns()
	truncated := false
	if len(cols) > previewColumnLimit {
		cols = cols[:previewColumnLimit]
		truncated = true
	}

	w := table.NewWriter()
	w.SetOutputMirror(cmd.OutOrStdout())
	w.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(cols)+1)
	for _, c := range cols {
		header = append(header, c)
	}
	if truncated {
		header = append(header, "...")
	}
	w.AppendHeader(header)

	rows := min(maxRows, t.Rows())
	for r := 0; r < rows; r++ {
		row := make(table.Row, 0, len(cols)+1)
		for _, name := range cols {
			col, _ := t.Column(name)
			if col.Kind == frame.KindText {
				row = append(row, col.Text[r])
				continue
			}
			v := col.Nums[r]
			if math.IsNaN(v) {
				row = append(row, "")
			} else {
				row = append(row, v)
			}
		}
		if truncated {
			row = append(row, "...")
		}
		w.AppendRow(row)
	}
	w.Render()
}
