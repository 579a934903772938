// Package config loads graphpad configuration from TOML files.
//
// Configuration is optional: every field has a working default, and a
// missing config file is not an error. The search order is an explicit
// --config path, then $GRAPHPAD_CONFIG, then ~/.config/graphpad/config.toml.
//
// Example config:
//
//	listen = "127.0.0.1:8745"
//	layout = "dot"
//
//	[zoom]
//	min = 0.1
//	max = 10.0
//	animation_ms = 250
//
//	[editor]
//	debounce_ms = 1000
//
//	[cache]
//	backend = "file"       # "none", "file", or "redis"
//	dir = ""               # file backend; empty = default cache dir
//	url = ""               # redis backend, e.g. redis://localhost:6379/0
//	ttl_hours = 168
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/graphpad/graphpad/pkg/engine"
	pkgerrors "github.com/graphpad/graphpad/pkg/errors"
	"github.com/graphpad/graphpad/pkg/viewer"
)

// Cache backend names accepted in [cache].backend.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the full graphpad configuration.
type Config struct {
	// Listen is the bridge server address.
	Listen string `toml:"listen"`

	// Layout is the default layout engine for new documents.
	Layout string `toml:"layout"`

	Zoom   Zoom   `toml:"zoom"`
	Editor Editor `toml:"editor"`
	Cache  Cache  `toml:"cache"`
}

// Zoom bounds interactive zooming and its settle animation.
type Zoom struct {
	Min         float64 `toml:"min"`
	Max         float64 `toml:"max"`
	AnimationMS int     `toml:"animation_ms"`
}

// Editor holds input-side tuning.
type Editor struct {
	// DebounceMS is how long source changes are held before rendering.
	DebounceMS int `toml:"debounce_ms"`
}

// Cache selects and configures the render cache backend.
type Cache struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	URL      string `toml:"url"`
	TTLHours int    `toml:"ttl_hours"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:8745",
		Layout: engine.Dot.String(),
		Zoom: Zoom{
			Min:         viewer.DefaultMinZoom,
			Max:         viewer.DefaultMaxZoom,
			AnimationMS: int(viewer.DefaultZoomAnimation / time.Millisecond),
		},
		Editor: Editor{
			DebounceMS: 1000,
		},
		Cache: Cache{
			Backend:  CacheFile,
			TTLHours: 168,
		},
	}
}

// Load reads the config file at path, or the default locations when path is
// empty. A missing file yields Default(); a present but invalid file is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = defaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return cfg, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "config file %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Listen == "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "listen address must not be empty")
	}
	if _, err := engine.ParseLayout(c.Layout); err != nil {
		return err
	}
	if c.Zoom.Min <= 0 || c.Zoom.Max <= 0 || c.Zoom.Min > c.Zoom.Max {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "zoom extent [%g, %g] is not a valid range", c.Zoom.Min, c.Zoom.Max)
	}
	if c.Zoom.AnimationMS < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "zoom animation must not be negative")
	}
	if c.Editor.DebounceMS < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "editor debounce must not be negative")
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "unknown cache backend %q (want %s, %s, or %s)",
			c.Cache.Backend, CacheNone, CacheFile, CacheRedis)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.URL == "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "redis cache backend requires a url")
	}
	if c.Cache.TTLHours < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	return nil
}

// DefaultLayout returns the configured layout engine.
func (c Config) DefaultLayout() engine.Layout {
	l, err := engine.ParseLayout(c.Layout)
	if err != nil {
		return engine.Dot
	}
	return l
}

// ZoomAnimation returns the zoom settle duration.
func (c Config) ZoomAnimation() time.Duration {
	return time.Duration(c.Zoom.AnimationMS) * time.Millisecond
}

// Debounce returns the editor debounce interval.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Editor.DebounceMS) * time.Millisecond
}

// CacheTTL returns the render cache entry lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// defaultPath returns the first config file candidate, or "" when the home
// directory cannot be determined.
func defaultPath() string {
	if p := os.Getenv("GRAPHPAD_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "graphpad", "config.toml")
}
