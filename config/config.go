// Package config provides YAML and environment configuration loading
// for rblog's embedded event log, applying defaults for every option
// a caller leaves unset.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rblogdb/rblog/internal/idgen"
	"github.com/rblogdb/rblog/model"
)

const (
	defaultDatabaseName      = "event-log"
	defaultSchemaVersion     = 1
	defaultMaxEventsPerQuery = 1000
	defaultSnapshotInterval  = 100
	defaultHashAlgorithm     = "SHA-256"
)

// Config is rblog's configuration surface: the YAML-loadable options
// plus the injectable hooks (reducer, id generator, logger, clock)
// that have no file representation.
type Config struct {
	DatabaseName      string `yaml:"database_name"`
	SchemaVersion     int    `yaml:"schema_version"`
	MaxEventsPerQuery int    `yaml:"max_events_per_query"`
	SnapshotInterval  int64  `yaml:"snapshot_interval"`
	HashAlgorithm     string `yaml:"hash_algorithm"`

	// StateReducer folds an event into a running state. Not
	// representable in YAML; Load, Default and WithDefaults fill a nil
	// reducer with last-write-wins, and a caller may replace it before
	// Config reaches internal/snapshot or internal/reconstruct.
	StateReducer model.Reducer `yaml:"-"`

	// IDGenerator produces event IDs. Not representable in YAML; nil
	// means the facade defaults it to a UUIDv7 generator.
	IDGenerator model.IDGenerator `yaml:"-"`

	// Logger receives the write pipeline's structured write_event and
	// auto-snapshot log lines. Nil means the facade defaults it to slog.Default().
	Logger *slog.Logger `yaml:"-"`

	// Now is the clock integrity reports use to measure elapsed check
	// duration. Nothing else in the core reads wall time; event
	// timestamps are caller-supplied. Nil means time.Now.
	Now func() time.Time `yaml:"-"`
}

// Load reads the YAML file at path, unmarshals it into a Config, and
// applies defaults for every field the file leaves zero-valued.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a Config with every field set to its default, for
// callers that don't load from a file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// WithDefaults fills every unset field in place and returns c, so a
// hand-constructed partial Config is safe to open a log with.
func (c *Config) WithDefaults() *Config {
	applyDefaults(c)
	return c
}

func validate(cfg *Config) error {
	if cfg.HashAlgorithm != "" && cfg.HashAlgorithm != "SHA-256" {
		return fmt.Errorf("hash_algorithm: only %q is supported, got %q", "SHA-256", cfg.HashAlgorithm)
	}
	if cfg.MaxEventsPerQuery < 0 {
		return fmt.Errorf("max_events_per_query: must be >= 0, got %d", cfg.MaxEventsPerQuery)
	}
	if cfg.SnapshotInterval < 0 {
		return fmt.Errorf("snapshot_interval: must be >= 0, got %d", cfg.SnapshotInterval)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = defaultDatabaseName
	}
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = defaultSchemaVersion
	}
	if cfg.MaxEventsPerQuery == 0 {
		cfg.MaxEventsPerQuery = defaultMaxEventsPerQuery
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = defaultSnapshotInterval
	}
	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = defaultHashAlgorithm
	}
	if cfg.StateReducer == nil {
		cfg.StateReducer = lastWriteWinsReducer
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = idgen.UUIDv7()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
}

// lastWriteWinsReducer is the default state_reducer: each event's
// payload replaces the running state outright.
func lastWriteWinsReducer(_ any, e model.Event) any {
	return e.Payload
}
