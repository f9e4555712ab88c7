// Package command wires up the ribbit CLI.
package command

import (
	"github.com/spf13/cobra"

	"github.com/splee/ribbit/internal/config"
)

// NewRootCmd creates the root ribbit command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ribbit",
		Short: "Extract destruction events from notification emails",
		Long: `ribbit logs into an IMAP mailbox, retrieves destruction
notification emails, and writes one CSV row per destroyed entity to
stdout with columns: owner, destroyer, type, time, lat, lng.

Diagnostics go to stderr, so stdout can be redirected to a file:

  ribbit fetch > destructions.csv

The IMAP password is read from RIBBIT_IMAP_PASSWORD or the system
keyring (see "ribbit creds set"). Everything else lives in the config
file or RIBBIT_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultPath(), "path to config file")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewCredsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
