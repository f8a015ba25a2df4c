// Package config provides project configuration and the variable table
// loader. The variable table is the single source of truth for derived
// fields: adding a variable never requires touching evaluation code.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the full project configuration, layered from defaults,
// svindex.yaml, SVINDEX_* environment variables and CLI flags.
type Config struct {
	// State is the FIPS code of the state or territory to pull.
	State string `koanf:"state"`
	// Year is the census year.
	Year int `koanf:"year"`
	// Geography is the API geography keyword (place, county, tract, ...).
	Geography string `koanf:"geography"`
	// Variables is the path to the variable table CSV.
	Variables string `koanf:"variables"`
	// Outfile is the destination CSV path.
	Outfile string `koanf:"outfile"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	API   APIConfig   `koanf:"api"`
	Cache CacheConfig `koanf:"cache"`
	Fetch FetchConfig `koanf:"fetch"`
}

// APIConfig holds census API settings.
type APIConfig struct {
	// BaseURL is the API root; dataset slugs are appended under the year.
	BaseURL string `koanf:"base_url"`
	// Key is the optional API key for higher quotas.
	Key string `koanf:"key"`
	// Timeout bounds each chunk request.
	Timeout time.Duration `koanf:"timeout"`
}

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	// Dir stores one snapshot CSV per (dataset, state, year, geography)
	// plus the sqlite index.
	Dir string `koanf:"dir"`
	// RefreshOnFallback re-stamps a snapshot when a run falls back to
	// reading it after a failed live fetch.
	RefreshOnFallback bool `koanf:"refresh_on_fallback"`
}

// FetchConfig holds fetch execution settings.
type FetchConfig struct {
	// Parallel is the number of datasets fetched concurrently. Each
	// dataset remains atomic regardless of the limit.
	Parallel int `koanf:"parallel"`
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.State) == "" {
		problems = append(problems, "state is required")
	}
	if c.Year <= 0 {
		problems = append(problems, fmt.Sprintf("year %d is not a valid census year", c.Year))
	}
	if strings.TrimSpace(c.Geography) == "" {
		problems = append(problems, "geography is required")
	}
	if strings.TrimSpace(c.Variables) == "" {
		problems = append(problems, "variables table path is required")
	}
	if c.Fetch.Parallel < 1 {
		problems = append(problems, fmt.Sprintf("fetch.parallel must be at least 1, got %d", c.Fetch.Parallel))
	}
	if len(problems) > 0 {
		return &SchemaError{Problems: problems}
	}
	return nil
}

// SchemaError reports configuration problems. Every problem is listed, not
// just the first.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}
