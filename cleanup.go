package main

import (
	"github.com/spf13/cobra"
)

// newCleanupCmd builds the cleanup command: evict old synced records from
// the local store.
func newCleanupCmd() *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict old synced records from the local store",
		Long: "Deletes locally cached records that are older than the retention window and have " +
			"been confirmed by the backend. Records with unsynced changes are never evicted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			days := retentionDays
			if !cmd.Flags().Changed("retention-days") {
				days = resolvedCfg.Storage.RetentionDays
			}

			result, err := a.store.CleanupSynced(cmd.Context(), days)
			if err != nil {
				return err
			}

			statusf(flagQuiet, "Evicted %d record(s): %d surveys, %d zones, %d notes, %d media, %d checklist responses, %d utility entries.\n",
				result.Total(), result.Surveys, result.Zones, result.Notes,
				result.Media, result.Checklists, result.Utilities)

			return nil
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "override the configured retention window")

	return cmd
}
