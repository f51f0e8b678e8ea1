// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads holoauth configuration from flag defaults, an optional
// YAML file and explicitly set flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/store"
	"github.com/holomush/holoauth/internal/xdg"
)

// Backend names accepted by storage.credentials and storage.sessions.
const (
	BackendMemory   = "memory"
	BackendBbolt    = "bbolt"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the complete holoauth configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	GRPC     GRPCConfig     `koanf:"grpc" json:"grpc,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Tracing  TracingConfig  `koanf:"tracing" json:"tracing,omitempty"`
	Storage  StorageConfig  `koanf:"storage" json:"storage,omitempty"`
	Session  SessionConfig  `koanf:"session" json:"session,omitempty"`
	Password PasswordConfig `koanf:"password" json:"password,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=warning,enum=error"`
}

// GRPCConfig configures the RPC listener.
type GRPCConfig struct {
	Addr string    `koanf:"addr" json:"addr,omitempty" jsonschema:"description=gRPC listen address"`
	TLS  TLSConfig `koanf:"tls" json:"tls,omitempty"`
}

// TLSConfig enables mutual TLS on the RPC listener. Missing certificates are
// generated into CertsDir on first start.
type TLSConfig struct {
	Enabled  bool     `koanf:"enabled" json:"enabled,omitempty"`
	CertsDir string   `koanf:"certs_dir" json:"certs_dir,omitempty"`
	Hosts    []string `koanf:"hosts" json:"hosts,omitempty" jsonschema:"description=extra DNS names or IPs for the server certificate"`
}

// MetricsConfig configures the HTTP metrics and health endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=metrics/health HTTP address; empty disables"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Endpoint string `koanf:"endpoint" json:"endpoint,omitempty" jsonschema:"description=OTLP/HTTP endpoint URL; empty disables"`
}

// StorageConfig selects and locates the repository backends.
type StorageConfig struct {
	Credentials     string `koanf:"credentials" json:"credentials,omitempty" jsonschema:"enum=memory,enum=bbolt,enum=postgres"`
	Sessions        string `koanf:"sessions" json:"sessions,omitempty" jsonschema:"enum=memory,enum=bbolt,enum=postgres,enum=redis"`
	BboltPath       string `koanf:"bbolt_path" json:"bbolt_path,omitempty"`
	PostgresURL     string `koanf:"postgres_url" json:"postgres_url,omitempty"`
	AutoMigrate     bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
	RedisAddr       string `koanf:"redis_addr" json:"redis_addr,omitempty"`
	RedisPassword   string `koanf:"redis_password" json:"redis_password,omitempty"`
	RedisDB         int    `koanf:"redis_db" json:"redis_db,omitempty" jsonschema:"minimum=0"`
	RedisPrefix     string `koanf:"redis_prefix" json:"redis_prefix,omitempty"`
	ConnectAttempts uint64 `koanf:"connect_attempts" json:"connect_attempts,omitempty" jsonschema:"minimum=0"`
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl" json:"ttl,omitempty"`
	PurgeInterval time.Duration `koanf:"purge_interval" json:"purge_interval,omitempty"`
}

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	MemoryKiB   uint32 `koanf:"memory_kib" json:"memory_kib,omitempty" jsonschema:"minimum=8"`
	Iterations  uint32 `koanf:"iterations" json:"iterations,omitempty" jsonschema:"minimum=1"`
	Parallelism uint8  `koanf:"parallelism" json:"parallelism,omitempty" jsonschema:"minimum=1,maximum=255"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	params := auth.DefaultArgon2Params()
	return &Config{
		Log:     LogConfig{Format: "json", Level: "info"},
		GRPC:    GRPCConfig{Addr: "localhost:9500"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9501"},
		Storage: StorageConfig{
			Credentials:     BackendMemory,
			Sessions:        BackendMemory,
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "{holoauth}:",
			ConnectAttempts: store.DefaultConnectAttempts,
		},
		Session: SessionConfig{
			TTL:           auth.SessionTokenExpiry,
			PurgeInterval: 5 * time.Minute,
		},
		Password: PasswordConfig{
			MemoryKiB:   params.Memory,
			Iterations:  params.Iterations,
			Parallelism: params.Parallelism,
		},
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-format":        "log.format",
	"log-level":         "log.level",
	"grpc-addr":         "grpc.addr",
	"tls":               "grpc.tls.enabled",
	"certs-dir":         "grpc.tls.certs_dir",
	"metrics-addr":      "metrics.addr",
	"tracing-endpoint":  "tracing.endpoint",
	"credential-store":  "storage.credentials",
	"session-store":     "storage.sessions",
	"bbolt-path":        "storage.bbolt_path",
	"postgres-url":      "storage.postgres_url",
	"auto-migrate":      "storage.auto_migrate",
	"redis-addr":        "storage.redis_addr",
	"redis-prefix":      "storage.redis_prefix",
	"connect-attempts":  "storage.connect_attempts",
	"session-ttl":       "session.ttl",
	"purge-interval":    "session.purge_interval",
	"argon2-memory-kib": "password.memory_kib",
}

// RegisterFlags adds the serve flags with Default values.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("log-format", d.Log.Format, "log format (json or text)")
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("grpc-addr", d.GRPC.Addr, "gRPC listen address")
	flags.Bool("tls", d.GRPC.TLS.Enabled, "require mutual TLS on the gRPC listener")
	flags.String("certs-dir", "", "TLS certificates directory (default: XDG_CONFIG_HOME/holoauth/certs)")
	flags.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	flags.String("tracing-endpoint", "", "OTLP/HTTP trace endpoint URL (empty = disabled)")
	flags.String("credential-store", d.Storage.Credentials, "credential backend (memory, bbolt, postgres)")
	flags.String("session-store", d.Storage.Sessions, "session backend (memory, bbolt, postgres, redis)")
	flags.String("bbolt-path", "", "bbolt database file (default: XDG_DATA_HOME/holoauth/holoauth.db)")
	RegisterPostgresFlag(flags)
	flags.Bool("auto-migrate", false, "apply pending PostgreSQL migrations on start")
	flags.String("redis-addr", d.Storage.RedisAddr, "Redis address")
	flags.String("redis-prefix", d.Storage.RedisPrefix, "Redis key prefix, wrapped in a {hash tag} if it has none")
	flags.Uint64("connect-attempts", d.Storage.ConnectAttempts, "backend connection retries before giving up")
	flags.Duration("session-ttl", d.Session.TTL, "session lifetime (0 = never expires)")
	flags.Duration("purge-interval", d.Session.PurgeInterval, "expired session purge interval (0 = disabled)")
	flags.Uint32("argon2-memory-kib", d.Password.MemoryKiB, "argon2id memory cost in KiB")
}

// RegisterPostgresFlag adds only --postgres-url, for commands that need
// nothing else.
func RegisterPostgresFlag(flags *pflag.FlagSet) {
	flags.String("postgres-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
}

// Load builds a Config. path selects the YAML file; when empty the XDG config
// file is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(xdg.ConfigFile()); err == nil {
			path = xdg.ConfigFile()
		}
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code("CONFIG_NOT_FOUND").With("path", path).Wrap(err)
			}
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironment() {
	if c.Storage.PostgresURL == "" {
		c.Storage.PostgresURL = os.Getenv("DATABASE_URL")
	}
	if c.Storage.BboltPath == "" {
		c.Storage.BboltPath = xdg.DatabaseFile()
	}
	if c.GRPC.TLS.CertsDir == "" {
		c.GRPC.TLS.CertsDir = xdg.CertsDir()
	}
}

// Validate checks enums, ranges and the settings each chosen backend needs.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", c.Log.Format, "must be 'json' or 'text'")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	if c.GRPC.Addr == "" {
		return invalid("grpc.addr", c.GRPC.Addr, "is required")
	}

	switch c.Storage.Credentials {
	case BackendMemory, BackendBbolt, BackendPostgres:
	default:
		return invalid("storage.credentials", c.Storage.Credentials, "must be memory, bbolt or postgres")
	}
	switch c.Storage.Sessions {
	case BackendMemory, BackendBbolt, BackendPostgres, BackendRedis:
	default:
		return invalid("storage.sessions", c.Storage.Sessions, "must be memory, bbolt, postgres or redis")
	}
	if c.Uses(BackendPostgres) && c.Storage.PostgresURL == "" {
		return invalid("storage.postgres_url", "", "is required for the postgres backend")
	}
	if c.Uses(BackendBbolt) && c.Storage.BboltPath == "" {
		return invalid("storage.bbolt_path", "", "is required for the bbolt backend")
	}
	if c.Uses(BackendRedis) && c.Storage.RedisAddr == "" {
		return invalid("storage.redis_addr", "", "is required for the redis backend")
	}
	if c.Storage.RedisDB < 0 {
		return invalid("storage.redis_db", c.Storage.RedisDB, "cannot be negative")
	}

	if c.Session.TTL < 0 {
		return invalid("session.ttl", c.Session.TTL.String(), "cannot be negative")
	}
	if c.Session.PurgeInterval < 0 {
		return invalid("session.purge_interval", c.Session.PurgeInterval.String(), "cannot be negative")
	}

	if err := c.Password.Params().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "password").Wrap(err)
	}
	return nil
}

// Uses reports whether either store is configured with backend.
func (c *Config) Uses(backend string) bool {
	return c.Storage.Credentials == backend || c.Storage.Sessions == backend
}

// Params converts the configured costs into hasher parameters.
func (p PasswordConfig) Params() auth.Argon2Params {
	params := auth.DefaultArgon2Params()
	params.Memory = p.MemoryKiB
	params.Iterations = p.Iterations
	params.Parallelism = p.Parallelism
	return params
}

// RetryPolicy returns the backend connection policy.
func (s StorageConfig) RetryPolicy() store.RetryPolicy {
	policy := store.DefaultRetryPolicy()
	policy.Attempts = s.ConnectAttempts
	return policy
}

func invalid(field string, value any, msg string) error {
	return oops.Code("CONFIG_INVALID").
		With("field", field).
		With("value", value).
		Errorf("%s %s", field, msg)
}
