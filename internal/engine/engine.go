// Package engine orchestrates the scoring pipeline: load the variable
// table, fetch each dataset (falling back to the snapshot cache), merge the
// per-dataset tables on the geography key, evaluate alias expressions in
// dependency order and compute percentile ranks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/geostat-labs/svindex/internal/cache"
	"github.com/geostat-labs/svindex/internal/census"
	"github.com/geostat-labs/svindex/internal/config"
	"github.com/geostat-labs/svindex/internal/frame"
)

// Source records where a dataset's table came from.
type Source string

// Source constants.
const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
)

// MissingVariablesError reports raw codes that are absent from the merged
// table. Every missing code is listed, not just the first.
type MissingVariablesError struct {
	Codes []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("missing %d variables after merge: %s", len(e.Codes), strings.Join(e.Codes, ", "))
}

// Engine runs the pipeline. The cache store and configuration are threaded
// through explicitly; there is no ambient process-wide state.
type Engine struct {
	cfg    *config.Config
	client *census.Client
	store  *cache.Store
	logger *slog.Logger
}

// Config holds engine construction parameters.
type Config struct {
	// Project is the loaded project configuration.
	Project *config.Config
	// Client downloads datasets from the API.
	Client *census.Client
	// Store is the snapshot cache.
	Store *cache.Store
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Project == nil {
		return nil, fmt.Errorf("project configuration is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("census client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cfg: cfg.Project, client: cfg.Client, store: cfg.Store, logger: logger}, nil
}

// Result is a completed pipeline run.
type Result struct {
	// RunID is the recorded run identifier.
	RunID string
	// Table is the computed output: geography keys first, then raw
	// columns, then aliases in declared order.
	Table *frame.Table
	// Sources maps each dataset slug to where its table came from.
	Sources map[string]Source
	// SoftFailures lists recovered per-cell evaluation errors.
	SoftFailures []SoftFailure
}

// Run executes the whole pipeline. Unrecovered errors mark the recorded run
// failed and abort before any output is produced.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	run, err := e.store.CreateRun(e.cfg.State, e.cfg.Year, e.cfg.Geography)
	if err != nil {
		return nil, err
	}

	result, err := e.run(ctx)
	if err != nil {
		if cerr := e.store.CompleteRun(run.ID, cache.RunStatusFailed, err.Error()); cerr != nil {
			e.logger.Warn("failed to record run failure", "error", cerr)
		}
		return nil, err
	}

	if err := e.store.CompleteRun(run.ID, cache.RunStatusCompleted, ""); err != nil {
		e.logger.Warn("failed to record run completion", "error", err)
	}
	result.RunID = run.ID
	return result, nil
}

func (e *Engine) run(ctx context.Context) (*Result, error) {
	vars, err := config.LoadVariables(e.cfg.Variables)
	if err != nil {
		return nil, err
	}

	buckets, err := census.GroupCodesByDataset(vars)
	if err != nil {
		return nil, err
	}
	geokeys, err := census.Geokeys(e.cfg.Geography)
	if err != nil {
		return nil, err
	}
	e.logger.Info("variables discovered",
		"variables", buckets.TotalCodes(), "datasets", len(buckets.Order), "aliases", len(vars))

	frames, sources, err := e.fetchAll(ctx, buckets, geokeys)
	if err != nil {
		return nil, err
	}

	merged := frames[0]
	for _, extra := range frames[1:] {
		merged, err = merged.LeftJoin(extra)
		if err != nil {
			return nil, fmt.Errorf("merge datasets: %w", err)
		}
	}
	e.logger.Info("datasets merged", "rows", merged.Rows(), "columns", len(merged.Columns()))

	if err := checkRequiredCodes(merged, vars); err != nil {
		return nil, err
	}

	computed, failures, err := Evaluate(merged, vars, e.logger)
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		if f.Row < 0 {
			e.logger.Warn("alias not computable", "alias", f.Alias, "reason", f.Reason)
		} else {
			e.logger.Warn("cell recovered as NaN", "alias", f.Alias, "row", f.Row, "reason", f.Reason)
		}
	}

	if err := orderColumns(computed, geokeys, vars); err != nil {
		return nil, err
	}

	return &Result{Table: computed, Sources: sources, SoftFailures: failures}, nil
}

// fetchAll downloads every dataset bucket, falling back to the snapshot
// cache per dataset. Datasets are fetched with bounded parallelism; each
// dataset remains atomic (all chunks or the cache copy).
func (e *Engine) fetchAll(ctx context.Context, buckets *census.Buckets, geokeys []string) ([]*frame.Table, map[string]Source, error) {
	frames := make([]*frame.Table, len(buckets.Order))
	sources := make([]Source, len(buckets.Order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Fetch.Parallel, 1))

	for i, dataset := range buckets.Order {
		g.Go(func() error {
			table, source, err := e.fetchDataset(gctx, dataset, buckets.Codes[dataset], geokeys)
			if err != nil {
				return err
			}
			frames[i] = table
			sources[i] = source
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make(map[string]Source, len(buckets.Order))
	for i, dataset := range buckets.Order {
		out[dataset] = sources[i]
	}
	return frames, out, nil
}

// fetchDataset tries a live fetch once, writes the snapshot through on
// success, and otherwise reads the cache once. A dataset with neither a
// live result nor a snapshot is fatal for the run.
func (e *Engine) fetchDataset(ctx context.Context, dataset string, codes []string, geokeys []string) (*frame.Table, Source, error) {
	e.logger.Info("processing dataset", "dataset", dataset, "codes", len(codes))

	table, liveErr := e.client.Download(ctx, dataset, codes, e.cfg.Geography, e.cfg.State, e.cfg.Year)
	if liveErr == nil {
		if missing := missingCodes(table, codes); len(missing) > 0 {
			liveErr = &MissingVariablesError{Codes: missing}
		}
	}
	if liveErr == nil {
		e.logger.Info("fetched from API", "dataset", dataset, "rows", table.Rows())
		if err := e.store.Write(dataset, e.cfg.State, e.cfg.Year, e.cfg.Geography, table); err != nil {
			e.logger.Warn("snapshot write failed", "dataset", dataset, "error", err)
		}
		return table, SourceLive, nil
	}

	e.logger.Warn("API unavailable or incomplete, trying cache", "dataset", dataset, "error", liveErr)
	cached, cacheErr := e.store.Read(dataset, e.cfg.State, e.cfg.Year, e.cfg.Geography, geokeys)
	if cacheErr != nil {
		return nil, "", fmt.Errorf("dataset %s: live fetch failed (%v) and cache fallback failed: %w", dataset, liveErr, cacheErr)
	}

	e.logger.Info("loaded from cache", "dataset", dataset, "rows", cached.Rows())
	if e.cfg.Cache.RefreshOnFallback {
		if err := e.store.Touch(dataset, e.cfg.State, e.cfg.Year, e.cfg.Geography); err != nil {
			e.logger.Warn("snapshot refresh failed", "dataset", dataset, "error", err)
		}
	}
	return cached, SourceCache, nil
}

// missingCodes returns the requested codes absent from the table, sorted.
func missingCodes(table *frame.Table, codes []string) []string {
	var missing []string
	for _, code := range codes {
		if !table.HasColumn(code) {
			missing = append(missing, code)
		}
	}
	sort.Strings(missing)
	return missing
}

// checkRequiredCodes validates that every raw code referenced by any
// variable is present in the merged table.
func checkRequiredCodes(merged *frame.Table, vars []config.Variable) error {
	seen := make(map[string]bool)
	var missing []string
	for _, v := range vars {
		for _, code := range census.ExtractCodes(v.Expression) {
			if !seen[code] && !merged.HasColumn(code) {
				seen[code] = true
				missing = append(missing, code)
			}
			seen[code] = true
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingVariablesError{Codes: missing}
	}
	return nil
}

// orderColumns arranges the output: geography keys first, then the raw and
// passthrough columns, then aliases in the variable table's declared order.
func orderColumns(table *frame.Table, geokeys []string, vars []config.Variable) error {
	isKey := make(map[string]bool, len(geokeys))
	for _, k := range geokeys {
		isKey[k] = true
	}
	isAlias := make(map[string]bool, len(vars))
	for _, v := range vars {
		isAlias[v.Alias] = true
	}

	order := append([]string(nil), geokeys...)
	for _, name := range table.Columns() {
		if !isKey[name] && !isAlias[name] {
			order = append(order, name)
		}
	}
	for _, v := range vars {
		if table.HasColumn(v.Alias) {
			order = append(order, v.Alias)
		}
	}
	return table.Reorder(order)
}
