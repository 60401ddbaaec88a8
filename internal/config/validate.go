// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package config

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/safeconnect/safeconnect/internal/auth"
)

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// Validate checks settings needed to run the server.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return invalid("http.request_timeout", "request timeout must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "log level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database url is required for the postgres store")
		}
	case DriverMemory:
	default:
		return invalid("store.driver", "store driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Store.Driver)
	}
	if len(c.Auth.TokenSecret) < auth.MinTokenSecretLength {
		return invalid("auth.token_secret", "token secret must be at least %d bytes", auth.MinTokenSecretLength)
	}
	if c.Auth.SessionTTL <= 0 {
		return invalid("auth.session_ttl", "session ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return invalid("auth.bcrypt_cost", "bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.HashConcurrency < 0 {
		return invalid("auth.hash_concurrency", "hash concurrency cannot be negative")
	}
	if c.Auth.PurgeInterval < 0 {
		return invalid("auth.purge_interval", "purge interval cannot be negative")
	}
	return nil
}

// ValidateDatabase checks only what the database-facing commands need.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required")
	}
	return nil
}
