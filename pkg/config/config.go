// Package config loads the settings of the binding layer from TOML or YAML
// files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/thesyncim/libntgcalls/internal/ffi"
)

// Environment variables read by ApplyEnv. The library location variables
// (NTGCALLS_LIB_PATH and friends) are read by the loader itself.
const (
	EnvLogLevel  = "NTGCALLS_LOG_LEVEL"
	EnvLogFormat = "NTGCALLS_LOG_FORMAT"
	EnvMetrics   = "NTGCALLS_METRICS"
)

// Library controls where the engine library is found or fetched from.
type Library struct {
	Path            string
	BundleDir       string
	BundleURL       string
	BundleURLPrefix string
	BundleVersion   string
	BundleSHA256    string
	CacheDir        string
	DisableDownload bool
	DownloadTimeout time.Duration
}

// Log controls logrus output.
type Log struct {
	Level  string
	Format string // text or json
}

// Metrics controls Prometheus recording.
type Metrics struct {
	Enabled bool
}

// Config is the full configuration.
type Config struct {
	Library Library
	Log     Log
	Metrics Metrics
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Metrics: Metrics{Enabled: true},
	}
}

// fileConfig is the on-disk shape. Only keys present in the file override
// the defaults.
type fileConfig struct {
	Library struct {
		Path            string `toml:"path" yaml:"path"`
		BundleDir       string `toml:"bundle_dir" yaml:"bundle_dir"`
		BundleURL       string `toml:"bundle_url" yaml:"bundle_url"`
		BundleURLPrefix string `toml:"bundle_url_prefix" yaml:"bundle_url_prefix"`
		BundleVersion   string `toml:"bundle_version" yaml:"bundle_version"`
		BundleSHA256    string `toml:"bundle_sha256" yaml:"bundle_sha256"`
		CacheDir        string `toml:"cache_dir" yaml:"cache_dir"`
		DisableDownload bool   `toml:"disable_download" yaml:"disable_download"`
		DownloadTimeout string `toml:"download_timeout" yaml:"download_timeout"`
	} `toml:"library" yaml:"library"`
	Log struct {
		Level  string `toml:"level" yaml:"level"`
		Format string `toml:"format" yaml:"format"`
	} `toml:"log" yaml:"log"`
	Metrics struct {
		Enabled bool `toml:"enabled" yaml:"enabled"`
	} `toml:"metrics" yaml:"metrics"`
}

// definedFunc reports whether a dotted key path is present in the file.
type definedFunc func(key ...string) bool

// Load reads path on top of Default and then applies the environment.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
// An empty path only applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, defined, err := decodeFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load ntgcalls config: %w", err)
		}
		if err := raw.overlay(&cfg, defined); err != nil {
			return Config{}, fmt.Errorf("load ntgcalls config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("load ntgcalls config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string) (fileConfig, definedFunc, error) {
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return raw, nil, err
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return raw, nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return raw, nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
		}
		return raw, yamlDefined(tree), nil
	default:
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return raw, nil, err
		}
		return raw, meta.IsDefined, nil
	}
}

func yamlDefined(tree map[string]any) definedFunc {
	return func(key ...string) bool {
		node := tree
		for i, k := range key {
			v, ok := node[k]
			if !ok {
				return false
			}
			if i == len(key)-1 {
				return true
			}
			if node, ok = v.(map[string]any); !ok {
				return false
			}
		}
		return false
	}
}

func (raw fileConfig) overlay(cfg *Config, defined definedFunc) error {
	lib := raw.Library
	if defined("library", "path") {
		cfg.Library.Path = lib.Path
	}
	if defined("library", "bundle_dir") {
		cfg.Library.BundleDir = lib.BundleDir
	}
	if defined("library", "bundle_url") {
		cfg.Library.BundleURL = lib.BundleURL
	}
	if defined("library", "bundle_url_prefix") {
		cfg.Library.BundleURLPrefix = lib.BundleURLPrefix
	}
	if defined("library", "bundle_version") {
		cfg.Library.BundleVersion = lib.BundleVersion
	}
	if defined("library", "bundle_sha256") {
		cfg.Library.BundleSHA256 = lib.BundleSHA256
	}
	if defined("library", "cache_dir") {
		cfg.Library.CacheDir = lib.CacheDir
	}
	if defined("library", "disable_download") {
		cfg.Library.DisableDownload = lib.DisableDownload
	}
	if defined("library", "download_timeout") {
		d, err := time.ParseDuration(lib.DownloadTimeout)
		if err != nil {
			return fmt.Errorf("library.download_timeout: %w", err)
		}
		cfg.Library.DownloadTimeout = d
	}
	if defined("log", "level") {
		cfg.Log.Level = raw.Log.Level
	}
	if defined("log", "format") {
		cfg.Log.Format = raw.Log.Format
	}
	if defined("metrics", "enabled") {
		cfg.Metrics.Enabled = raw.Metrics.Enabled
	}
	return nil
}

// ApplyEnv overrides cfg with the NTGCALLS_* logging and metrics variables.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvMetrics); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetrics, err)
		}
		cfg.Metrics.Enabled = on
	}
	return nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Library.DownloadTimeout < 0 {
		return fmt.Errorf("invalid download timeout %s", c.Library.DownloadTimeout)
	}
	return nil
}

// LoaderOptions converts the library section for the engine loader.
func (c Config) LoaderOptions() ffi.LoaderOptions {
	return ffi.LoaderOptions{
		LibPath:         c.Library.Path,
		BundleDir:       c.Library.BundleDir,
		BundleURL:       c.Library.BundleURL,
		BundleURLPrefix: c.Library.BundleURLPrefix,
		BundleVersion:   c.Library.BundleVersion,
		BundleSHA256:    c.Library.BundleSHA256,
		CacheDir:        c.Library.CacheDir,
		DisableDownload: c.Library.DisableDownload,
		DownloadTimeout: c.Library.DownloadTimeout,
	}
}
