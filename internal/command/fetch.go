package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splee/ribbit/internal/mailbox"
	"github.com/splee/ribbit/internal/pipeline"
	"github.com/splee/ribbit/internal/store"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch notification emails and write events as CSV",
		Long: `Fetch connects to the configured IMAP mailbox, retrieves
destruction notifications from the configured sender (unread ones by
default), and writes one CSV row per event to stdout.

Unless --no-store is given, events are also recorded in a local SQLite
database and messages seen in a previous run are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			limit, _ := cmd.Flags().GetInt("limit")
			header, _ := cmd.Flags().GetBool("header")
			noStore, _ := cmd.Flags().GetBool("no-store")

			password, err := cfg.Password()
			if err != nil {
				return err
			}

			session, err := mailbox.Dial(mailbox.Config{
				Host:     cfg.IMAP.Host,
				Port:     cfg.IMAP.Port,
				Username: cfg.IMAP.Username,
				Password: password,
				Mailbox:  cfg.IMAP.Mailbox,
				Sender:   cfg.Sender,
				Peek:     cfg.IMAP.Peek,
			})
			if err != nil {
				return err
			}
			defer session.Close()

			var st store.Store
			if !noStore && cfg.StorePath != "" {
				sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
				if err != nil {
					return err
				}
				defer sqlStore.Close()
				st = sqlStore
			}

			p := &pipeline.Pipeline{
				Source: session,
				Store:  st,
				Out:    cmd.OutOrStdout(),
				Log:    cmd.ErrOrStderr(),
				Options: pipeline.Options{
					IncludeSeen: all,
					Limit:       limit,
					Header:      header,
				},
			}

			written, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d events\n", written)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "include messages already marked as read")
	cmd.Flags().Int("limit", 0, "process at most N messages (0 = all)")
	cmd.Flags().Bool("header", false, "emit a CSV header row")
	cmd.Flags().Bool("no-store", false, "skip the local event database")

	return cmd
}
