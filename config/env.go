package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names FromEnv reads. Each overrides the
// matching Config field when set and non-empty.
const (
	EnvDatabaseName      = "RBLOG_DATABASE_NAME"
	EnvSchemaVersion     = "RBLOG_SCHEMA_VERSION"
	EnvMaxEventsPerQuery = "RBLOG_MAX_EVENTS_PER_QUERY"
	EnvSnapshotInterval  = "RBLOG_SNAPSHOT_INTERVAL"
	EnvHashAlgorithm     = "RBLOG_HASH_ALGORITHM"
)

// FromEnv overlays environment variables onto cfg, for container
// deployments where a YAML file is inconvenient. A nil cfg starts from
// Default(). Unset or empty variables leave the field untouched;
// malformed integers and unsupported hash algorithms are rejected.
func FromEnv(cfg *Config) (*Config, error) {
	if cfg == nil {
		cfg = Default()
	}

	if v := os.Getenv(EnvDatabaseName); v != "" {
		cfg.DatabaseName = v
	}
	if v := os.Getenv(EnvHashAlgorithm); v != "" {
		cfg.HashAlgorithm = v
	}

	if err := overlayInt(EnvSchemaVersion, &cfg.SchemaVersion); err != nil {
		return nil, err
	}
	if err := overlayInt(EnvMaxEventsPerQuery, &cfg.MaxEventsPerQuery); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvSnapshotInterval); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %q is not an integer", EnvSnapshotInterval, v)
		}
		cfg.SnapshotInterval = n
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: environment validation failed: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func overlayInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %q is not an integer", name, v)
	}
	*dst = n
	return nil
}
