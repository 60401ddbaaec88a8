package main

import (
	"github.com/spf13/cobra"

	"github.com/safeconnect/safeconnect/internal/config"
	"github.com/safeconnect/safeconnect/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the SafeConnect CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safeconnect",
		Short: "SafeConnect - account and session service",
		Long: `SafeConnect registers accounts, signs users in and out, and
answers "who is the current user" for the SafeConnect mobile app.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/safeconnect/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("safeconnect %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

// loadConfig reads configuration for cmd, letting its explicitly set flags win.
// Without --config it falls back to the XDG config file if one exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.DefaultConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}
	return config.Load(path, cmd.Flags())
}
