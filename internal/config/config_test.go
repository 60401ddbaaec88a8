// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":5000", RequestTimeout: 10 * time.Second, CORSOrigins: "*"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:      LogConfig{Format: "json", Level: "info"},
		Store:    StoreConfig{Driver: DriverPostgres},
		Database: DatabaseConfig{URL: "postgres://localhost/safeconnect", ConnectAttempts: 5},
		Auth: AuthConfig{
			TokenSecret:   testSecret,
			SessionTTL:    168 * time.Hour,
			BcryptCost:    10,
			PurgeInterval: time.Hour,
		},
	}
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("addr", ":5000", "")
	fs.String("store", DriverPostgres, "")
	fs.Duration("session-ttl", 168*time.Hour, "")
	fs.Int("bcrypt-cost", 10, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "*", cfg.HTTP.CORSOrigins)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, uint64(5), cfg.Database.ConnectAttempts)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 0, cfg.Auth.HashConcurrency)
	assert.Equal(t, time.Hour, cfg.Auth.PurgeInterval)
	assert.Empty(t, cfg.Auth.TokenSecret)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safeconnect.yaml")
	content := strings.Join([]string{
		"http:",
		"  addr: \":8080\"",
		"  request_timeout: 3s",
		"store:",
		"  driver: memory",
		"auth:",
		"  token_secret: " + testSecret,
		"  session_ttl: 24h",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, testSecret, cfg.Auth.TokenSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_LOAD_FAILED", oopsErr.Code())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SAFECONNECT_AUTH__TOKEN_SECRET", testSecret)
	t.Setenv("SAFECONNECT_AUTH__BCRYPT_COST", "12")
	t.Setenv("SAFECONNECT_HTTP__ADDR", ":7000")
	t.Setenv("SAFECONNECT_DATABASE__AUTO_MIGRATE", "false")
	t.Setenv("DATABASE_URL", "postgres://db/safeconnect")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.Auth.TokenSecret)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "postgres://db/safeconnect", cfg.Database.URL)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safeconnect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":8080\"\n"), 0o600))
	t.Setenv("SAFECONNECT_HTTP__ADDR", ":9090")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_Flags(t *testing.T) {
	t.Run("explicit flags win over environment", func(t *testing.T) {
		t.Setenv("SAFECONNECT_HTTP__ADDR", ":9090")
		fs := newFlags()
		require.NoError(t, fs.Parse([]string{"--addr", ":6000", "--store", "memory", "--session-ttl", "2h"}))

		cfg, err := Load("", fs)
		require.NoError(t, err)
		assert.Equal(t, ":6000", cfg.HTTP.Addr)
		assert.Equal(t, DriverMemory, cfg.Store.Driver)
		assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	})

	t.Run("unset flags keep lower layers", func(t *testing.T) {
		t.Setenv("SAFECONNECT_HTTP__ADDR", ":9090")
		fs := newFlags()
		require.NoError(t, fs.Parse(nil))

		cfg, err := Load("", fs)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.HTTP.Addr)
		assert.Equal(t, 10, cfg.Auth.BcryptCost)
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "auth.token_secret", envKey("SAFECONNECT_AUTH__TOKEN_SECRET"))
	assert.Equal(t, "http.request_timeout", envKey("SAFECONNECT_HTTP__REQUEST_TIMEOUT"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	memory := validConfig()
	memory.Store.Driver = DriverMemory
	memory.Database.URL = ""
	require.NoError(t, memory.Validate(), "memory store needs no database")

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"zero timeout", func(c *Config) { c.HTTP.RequestTimeout = 0 }, "http.request_timeout"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"postgres without url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"short secret", func(c *Config) { c.Auth.TokenSecret = "short" }, "auth.token_secret"},
		{"zero ttl", func(c *Config) { c.Auth.SessionTTL = 0 }, "auth.session_ttl"},
		{"low bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }, "auth.bcrypt_cost"},
		{"high bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 40 }, "auth.bcrypt_cost"},
		{"negative hash concurrency", func(c *Config) { c.Auth.HashConcurrency = -1 }, "auth.hash_concurrency"},
		{"negative purge interval", func(c *Config) { c.Auth.PurgeInterval = -time.Second }, "auth.purge_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
			assert.Equal(t, tt.key, oopsErr.Context()["key"])
		})
	}
}

func TestValidateDatabase(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.ValidateDatabase())

	cfg.Database.URL = "postgres://localhost/safeconnect"
	require.NoError(t, cfg.ValidateDatabase())
}
