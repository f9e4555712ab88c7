package command

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splee/ribbit/internal/event"
	"github.com/splee/ribbit/internal/store"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write previously stored events as CSV",
		Long: `Export dumps events recorded by earlier fetch runs from the
local database to stdout, oldest first, in the same CSV shape fetch
produces.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.StorePath == "" {
				return fmt.Errorf("no store_path configured, nothing to export")
			}

			entityType, _ := cmd.Flags().GetString("type")
			owner, _ := cmd.Flags().GetString("owner")
			limit, _ := cmd.Flags().GetInt("limit")
			header, _ := cmd.Flags().GetBool("header")

			if entityType != "" && !event.KnownType(entityType) {
				return fmt.Errorf("unknown entity type %q", entityType)
			}

			sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
			if err != nil {
				return err
			}
			defer sqlStore.Close()

			events, err := sqlStore.ListEvents(cmd.Context(), store.EventFilter{
				Type:  entityType,
				Owner: owner,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			if header {
				if err := w.Write(event.Columns); err != nil {
					return fmt.Errorf("writing CSV header: %w", err)
				}
			}
			for _, e := range events {
				if err := w.Write(e.Record()); err != nil {
					return fmt.Errorf("writing CSV row: %w", err)
				}
			}
			w.Flush()

			return w.Error()
		},
	}

	cmd.Flags().String("type", "", "only export events of this entity type")
	cmd.Flags().String("owner", "", "only export events for this portal owner")
	cmd.Flags().Int("limit", 0, "export at most N events (0 = all)")
	cmd.Flags().Bool("header", false, "emit a CSV header row")

	return cmd
}
