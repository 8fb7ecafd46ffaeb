package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newUtilitiesCmd builds the utilities command: the locally stored
// utility-tracking entries, typically landed by the CSV importer.
func newUtilitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "utilities",
		Short: "List imported utility entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListUtilityEntries(cmd.Context())
			if err != nil {
				return err
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(entries)
			}

			headers := []string{"DATE", "TYPE", "SUPPLIER", "AMOUNT", "SYNC"}

			rows := make([][]string, 0, len(entries))
			for _, u := range entries {
				state := "synced"
				if u.NeedsSync {
					state = "pending"
				}

				rows = append(rows, []string{
					u.ReadingDate,
					u.UtilityType,
					u.Supplier,
					fmt.Sprintf("%.2f", u.Amount),
					colorizeSyncState(state),
				})
			}

			printTable(os.Stdout, headers, rows)

			return nil
		},
	}

	cmd.AddCommand(newUtilitiesRemoveCmd())

	return cmd
}

// newUtilitiesRemoveCmd builds the utilities remove subcommand. Removal is
// local only; utility rows are insert-only on the backend.
func newUtilitiesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entry-id>",
		Short: "Remove a utility entry from the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.repo.DeleteUtilityEntry(cmd.Context(), args[0]); err != nil {
				return err
			}

			statusf(flagQuiet, "Utility entry %s removed.\n", args[0])

			return nil
		},
	}
}
