// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package main

import (
	"context"
	"net"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safeconnect/safeconnect/internal/auth"
	"github.com/safeconnect/safeconnect/internal/config"
	"github.com/safeconnect/safeconnect/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// RepositoryFactory opens the account and session repositories.
	// Default: openRepositories
	RepositoryFactory func(ctx context.Context, cfg *config.Config) (*Repositories, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, registry *prometheus.Registry, ready observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// Repositories is an opened storage backend.
type Repositories struct {
	Accounts auth.AccountRepository
	Sessions auth.SessionRepository
	// Close releases the backend. Never nil.
	Close func()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// MigratorFactory opens a Migrator for a database URL.
type MigratorFactory func(databaseURL string) (Migrator, error)
