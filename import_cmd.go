package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairlead/surveysync/internal/importer"
)

// newImportCmd builds the import command: one-shot CSV import, or a
// drop-directory watcher with --watch.
func newImportCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import utility-tracking CSV files",
		Long: "Imports utility entries from a CSV file with columns readingdate, utilitytype, " +
			"supplier, amount (required) and reading, unit, notes (optional). With --watch, " +
			"monitors the configured drop directory and imports every CSV placed there.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := shutdownContext(cmd.Context(), a.logger)

			a.monitor.Probe(ctx)

			im := importer.New(a.store, a.client, a.monitor, a.logger)

			if watch {
				dir := resolvedCfg.Import.WatchDir
				if dir == "" {
					return errors.New("no import watch directory configured (import.watch_dir)")
				}

				err := im.Watch(ctx, dir)
				if errors.Is(err, context.Canceled) {
					return nil
				}

				return err
			}

			if len(args) == 0 {
				return errors.New("provide a CSV file to import, or use --watch")
			}

			result, err := im.ImportFile(ctx, args[0])
			if err != nil {
				return err
			}

			statusf(flagQuiet, "Imported %d entries (%d pushed, %d queued).\n",
				result.Imported, result.Pushed, result.Queued)

			for _, rejected := range result.Rejected {
				fmt.Fprintf(os.Stderr, "Skipped %v\n", rejected)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch the configured drop directory")

	return cmd
}
