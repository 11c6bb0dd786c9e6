package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gpsbridge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled || cfg.History.Path == "" {
				return fmt.Errorf("history journal is disabled in the configuration")
			}

			store, err := history.Open(cmd.Context(), cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history journal: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No conversions recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := entry.Layers
				if entry.Status != history.StatusOK {
					detail = entry.Diagnostic
				}
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.CreatedAt.Local().Format(time.DateTime),
					entry.Source,
					entry.Driver,
					entry.Mode,
					entry.Status,
					detail,
				})
			}
			table := renderTable(
				[]string{"ID", "When", "Source", "Driver", "Mode", "Status", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	return cmd
}
