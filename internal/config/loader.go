package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory.
const (
	ConfigFileName    = "svindex.yaml"
	ConfigFileNameAlt = "svindex.yml"
)

// Defaults for a first-time run with no config file.
const (
	DefaultState     = "66"
	DefaultYear      = 2020
	DefaultGeography = "place"
	DefaultVariables = "configs/variables.csv"
	DefaultOutfile   = "svindex_output.csv"
	DefaultCacheDir  = "cache"
	DefaultBaseURL   = "https://api.census.gov/data"
)

// flagKeyOverrides maps flag names (kebab-case) to nested config keys where
// the flat snake_case transform is not enough.
var flagKeyOverrides = map[string]string{
	"api_key":             "api.key",
	"base_url":            "api.base_url",
	"cache_dir":           "cache.dir",
	"refresh_on_fallback": "cache.refresh_on_fallback",
	"parallel":            "fetch.parallel",
}

// Load builds the configuration with the priority: flags > env > config
// file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state":          DefaultState,
		"year":           DefaultYear,
		"geography":      DefaultGeography,
		"variables":      DefaultVariables,
		"outfile":        DefaultOutfile,
		"verbose":        false,
		"api.base_url":   DefaultBaseURL,
		"api.timeout":    "60s",
		"cache.dir":      DefaultCacheDir,
		"fetch.parallel": 1,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file (explicit path or svindex.yaml/.yml in cwd)
	configFile := findConfigFile(cfgFile)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	// 3. Environment variables: SVINDEX_API__KEY -> api.key
	if err := k.Load(env.Provider("SVINDEX_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "SVINDEX_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeyOverrides[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// findConfigFile finds the config file to use.
// Priority: explicit path > svindex.yaml > svindex.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}
