// Package config loads the module's cache-size and cache-directory
// settings from a TOML file with env var overrides, following the
// noisetorch reference repo's config.toml + xdgOrFallback pattern
// generalized to three platforms.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

const defaultAppName = "PDFVIEWER"

// Config holds the recognized TOML/env tunables for cache sizing and
// cache directory placement.
type Config struct {
	RAMCacheMB   int64  `toml:"ram_cache_mb"`
	GPUCacheMB   int64  `toml:"gpu_cache_mb"`
	DiskCacheMB  int64  `toml:"disk_cache_mb"`
	DiskCacheDir string `toml:"disk_cache_dir"`
	TotalRAMGB   int64  `toml:"total_ram_gb"`
}

// Default returns a Config with the documented default cache sizes.
func Default() Config {
	return Config{
		RAMCacheMB:  256,
		GPUCacheMB:  512,
		DiskCacheMB: 1024,
		// DiskCacheDir left empty: resolved to CacheDir() lazily, since
		// it depends on the app name and the OS.
	}
}

// Option configures Load/ApplyEnvOverrides behavior.
type Option func(*options)

type options struct {
	appName string
}

// WithAppName overrides the env var prefix (default "PDFVIEWER") and the
// application name used in OS cache-directory resolution.
func WithAppName(name string) Option {
	return func(o *options) { o.appName = name }
}

func resolveOptions(opts []Option) options {
	o := options{appName: defaultAppName}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Load reads a TOML config file at path, starting from Default() so
// unspecified fields keep their defaults, then applies env var overrides.
// A missing file is not an error: Load returns Default() with env
// overrides applied.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	o := resolveOptions(opts)
	ApplyEnvOverrides(&cfg, o.appName)

	if cfg.DiskCacheDir == "" {
		dir, err := CacheDir(o.appName)
		if err == nil {
			cfg.DiskCacheDir = dir
		}
	}

	return cfg, nil
}

// ApplyEnvOverrides reads <APP>_RAM_CACHE_MB, <APP>_GPU_CACHE_MB,
// <APP>_DISK_CACHE_MB, <APP>_CACHE_DIR, and <APP>_TOTAL_RAM_GB, applying
// any that are set over cfg's current values.
func ApplyEnvOverrides(cfg *Config, appName string) {
	if v, ok := envInt64(appName + "_RAM_CACHE_MB"); ok {
		cfg.RAMCacheMB = v
	}
	if v, ok := envInt64(appName + "_GPU_CACHE_MB"); ok {
		cfg.GPUCacheMB = v
	}
	if v, ok := envInt64(appName + "_DISK_CACHE_MB"); ok {
		cfg.DiskCacheMB = v
	}
	if v, ok := os.LookupEnv(appName + "_CACHE_DIR"); ok && v != "" {
		cfg.DiskCacheDir = v
	}
	if v, ok := envInt64(appName + "_TOTAL_RAM_GB"); ok {
		cfg.TotalRAMGB = v
	}
}

func envInt64(name string) (int64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
