package configtypes

import (
	"fmt"
	"time"
)

// Log level constants
const (
	LogLevelDebug  = "debug"
	LogLevelInfo   = "info"
	LogLevelWarn   = "warn"
	LogLevelError  = "error"
	LogLevelDPanic = "dpanic"
	LogLevelPanic  = "panic"
	LogLevelFatal  = "fatal"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// EngineConfig is the top-level settings document for a filter-list
// compiler/matcher process in this lineage: logging, metrics, the
// optional distributed runtime-state store, and the compiler/matcher
// settings proper.
type EngineConfig struct {
	Log     LogConfig      `yaml:"log"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Redis   *RedisConfig   `yaml:"redis,omitempty"`
	Engine  EngineSettings `yaml:"engine"`
}

// EngineSettings holds compiler/matcher runtime knobs that are neither
// part of a compiled snapshot (those live in the filter lists
// themselves) nor ambient (logging/metrics, above).
type EngineSettings struct {
	// PSLOverrides lets an operator force specific domains to a given
	// eTLD+1 boundary without waiting on a public suffix list update.
	PSLOverrides []PSLOverrideRule `yaml:"psl_overrides,omitempty"`

	// DefaultRequestTypes and DefaultSchemes seed the request-type/scheme
	// masks a RequestContext gets when a caller does not set them
	// explicitly (see snapshot option masks).
	DefaultRequestTypes []string `yaml:"default_request_types,omitempty"`
	DefaultSchemes      []string `yaml:"default_schemes,omitempty"`

	// RemoveparamTTL is parsed and validated from removeparam_ttl, but no
	// engine component reads it: the matcher's removeparam dedup window is
	// the fixed removeparamDedupTTLSeconds (10s).
	RemoveparamTTL Duration `yaml:"removeparam_ttl,omitempty"`

	// TrustedSiteBootstrap seeds the matcher's trusted-site set at
	// startup, before any runtime-state mutation arrives.
	TrustedSiteBootstrap []string `yaml:"trusted_site_bootstrap,omitempty"`

	// RuntimeStoreDSN selects the distributed runtime-state backend.
	// Empty means an in-memory, single-process store; a
	// "redis://host:port/db" value selects the Redis-backed store.
	RuntimeStoreDSN string `yaml:"runtime_store_dsn,omitempty"`
}

// PSLOverrideRule forces Domain (and everything under it) to resolve to
// itself as the eTLD+1 boundary, bypassing the public suffix list.
type PSLOverrideRule struct {
	Domain string `yaml:"domain"`
}

// Duration parses YAML duration strings ("500ms", "30s", "1h") into a
// time.Duration. Unlike this lineage's types.Duration, it does not
// accept day/week suffixes: this domain's only duration setting
// (removeparam_ttl) never needs units coarser than hours.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
