// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/safeconnect/safeconnect/internal/config"
)

// sessionsDeps lets tests replace the storage backend and clock.
type sessionsDeps struct {
	openRepositories func(ctx context.Context, cfg *config.Config) (*Repositories, error)
	now              func() time.Time
}

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd() *cobra.Command {
	return newSessionsCmd(&sessionsDeps{
		openRepositories: func(ctx context.Context, cfg *config.Config) (*Repositories, error) {
			return openRepositories(ctx, cfg, defaultMigratorFactory)
		},
		now: time.Now,
	})
}

func newSessionsCmd(deps *sessionsDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain stored sessions",
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		Long: `Delete every session whose expiry has passed from the PostgreSQL store.
Expired sessions are already rejected at sign-in checks; this only reclaims
storage. The memory store lives inside the serving process, whose janitor
purges it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return oops.Code("SESSION_PURGE_UNSUPPORTED").
					With("driver", cfg.Store.Driver).
					Errorf("sessions purge needs the %s store", config.DriverPostgres)
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			// Purging must not change the schema.
			cfg.Database.AutoMigrate = false

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repos, err := deps.openRepositories(ctx, cfg)
			if err != nil {
				return oops.Code("SESSION_PURGE_FAILED").With("operation", "open store").Wrap(err)
			}
			defer repos.Close()

			n, err := repos.Sessions.DeleteExpired(ctx, deps.now())
			if err != nil {
				return oops.Code("SESSION_PURGE_FAILED").With("operation", "delete expired").Wrap(err)
			}
			cmd.Printf("Purged %d expired sessions\n", n)
			return nil
		},
	}
	purge.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.AddCommand(purge)

	return cmd
}
