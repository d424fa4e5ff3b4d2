// Package config loads trial files and server settings.
//
// A trial file is TOML describing one layout and its outputs; flags given
// on the command line override it. The server reads its settings from
// FIELDBOOK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
)

// AppName names the cache directory and environment prefix.
const AppName = "fieldbook"

// =============================================================================
// Trial Files
// =============================================================================

// Trial is the content of a trial file.
type Trial struct {
	Genotypes []string `toml:"genotypes"`
	Blocks    int      `toml:"blocks"`
	Columns   int      `toml:"columns"`

	// Serpentine accepts a boolean or yes/no.
	Serpentine any     `toml:"serpentine"`
	Alongside  string  `toml:"alongside"`
	Seed       *uint64 `toml:"seed"`

	Capacity Capacity `toml:"capacity"`
	Output   Output   `toml:"output"`
}

// Capacity holds the variable capacity settings.
type Capacity struct {
	Variable bool  `toml:"variable"`
	Columns  []int `toml:"columns"`
}

// Output describes what the layout command writes.
type Output struct {
	// Formats mixes book encodings (json, csv, xlsx) and renders (svg,
	// png, pdf, dot).
	Formats     []string `toml:"formats"`
	Path        string   `toml:"path"`
	Viz         string   `toml:"viz"`
	ShowNumbers bool     `toml:"show_numbers"`
}

// LoadTrial reads a trial file. Unknown keys are errors so that typos do
// not silently fall back to defaults.
func LoadTrial(path string) (*Trial, error) {
	var t Trial
	if err := decodeStrict(path, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DesignOptions converts the trial into generation options. Values are
// parsed but not validated; design.Generate does that.
func (t *Trial) DesignOptions() (design.Options, error) {
	opts := design.Options{
		Genotypes:        slices.Clone(t.Genotypes),
		Blocks:           t.Blocks,
		Columns:          t.Columns,
		VariableCapacity: t.Capacity.Variable,
		Capacities:       slices.Clone(t.Capacity.Columns),
		Seed:             t.Seed,
	}
	if t.Serpentine != nil {
		s, err := design.ParseSerpentine(fmt.Sprint(t.Serpentine))
		if err != nil {
			return opts, err
		}
		opts.Serpentine = s
	}
	a, err := design.ParseAlongside(t.Alongside)
	if err != nil {
		return opts, err
	}
	opts.Alongside = a
	return opts, nil
}

// Scales is the content of a grading scale file.
type Scales struct {
	Default map[string]float64            `toml:"default"`
	Traits  map[string]map[string]float64 `toml:"traits"`
}

// LoadScales reads a grading scale file.
func LoadScales(path string) (*Scales, error) {
	var s Scales
	if err := decodeStrict(path, &s); err != nil {
		return nil, err
	}
	if len(s.Default) == 0 && len(s.Traits) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s defines no scales", filepath.Base(path))
	}
	return &s, nil
}

// decodeStrict decodes a TOML file, rejecting keys v has no field for.
func decodeStrict(path string, v any) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "%s", path)
	}
	md, err := toml.DecodeFile(path, v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", filepath.Base(path))
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "unknown keys in %s: %s", filepath.Base(path), strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// Server Settings
// =============================================================================

// Server holds the HTTP server settings.
type Server struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	// RedisAddr enables the Redis cache; empty disables caching.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// CachePrefix scopes cache keys so deployments can share one Redis.
	CachePrefix string `envconfig:"CACHE_PREFIX" default:"fieldbook:"`

	// MongoURI enables the MongoDB store; empty keeps layouts in memory.
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"fieldbook"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// MaxGenotypes bounds layout requests.
	MaxGenotypes int `envconfig:"MAX_GENOTYPES" default:"5000"`
}

// LoadServer reads FIELDBOOK_* environment variables.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := envconfig.Process(strings.ToUpper(AppName), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "server config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Server) validate() error {
	if c.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "FIELDBOOK_ADDR must not be empty")
	}
	if err := errors.ValidateEnum(errors.ErrCodeInvalidInput, "log level", c.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if c.MaxGenotypes < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "FIELDBOOK_MAX_GENOTYPES must be at least 2")
	}
	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":     c.ReadTimeout,
		"WRITE_TIMEOUT":    c.WriteTimeout,
		"REQUEST_TIMEOUT":  c.RequestTimeout,
		"SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "FIELDBOOK_%s must be positive", name)
		}
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// CacheDir returns the cache directory using the XDG convention
// (~/.cache/fieldbook/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
