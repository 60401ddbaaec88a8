// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

// Package config loads SafeConnect settings.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, SAFECONNECT_* environment variables (plus DATABASE_URL), and
// finally command-line flags that were set explicitly.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys use a double underscore: SAFECONNECT_AUTH__TOKEN_SECRET.
const EnvPrefix = "SAFECONNECT_"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	CORSOrigins    string        `koanf:"cors_origins"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StoreConfig selects the repository implementation.
type StoreConfig struct {
	Driver string `koanf:"driver"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// AuthConfig configures hashing and sessions.
type AuthConfig struct {
	TokenSecret     string        `koanf:"token_secret"`
	SessionTTL      time.Duration `koanf:"session_ttl"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
	HashConcurrency int           `koanf:"hash_concurrency"`
	PurgeInterval   time.Duration `koanf:"purge_interval"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                 ":5000",
		"http.request_timeout":      "10s",
		"http.cors_origins":         "*",
		"metrics.addr":              "127.0.0.1:9100",
		"log.format":                "json",
		"log.level":                 "info",
		"store.driver":              DriverPostgres,
		"database.url":              "",
		"database.connect_attempts": 5,
		"database.auto_migrate":     true,
		"auth.token_secret":         "",
		"auth.session_ttl":          "168h",
		"auth.bcrypt_cost":          10,
		"auth.hash_concurrency":     0,
		"auth.purge_interval":       "1h",
	}
}

// FlagKeys maps command-line flag names to configuration keys.
// Flags not listed here are ignored by Load.
var FlagKeys = map[string]string{
	"addr":            "http.addr",
	"request-timeout": "http.request_timeout",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"store":           "store.driver",
	"database-url":    "database.url",
	"auto-migrate":    "database.auto_migrate",
	"session-ttl":     "auth.session_ttl",
	"bcrypt-cost":     "auth.bcrypt_cost",
	"purge-interval":  "auth.purge_interval",
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), the environment and flags (skipped when nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	// DATABASE_URL is honoured for compatibility with common hosting platforms.
	if err := k.Load(env.Provider("DATABASE_URL", ".", func(s string) string {
		if s == "DATABASE_URL" {
			return "database.url"
		}
		return ""
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}

// envKey turns SAFECONNECT_AUTH__TOKEN_SECRET into auth.token_secret.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
