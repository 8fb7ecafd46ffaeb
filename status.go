package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// statusReport is the machine-readable form of the status command output.
type statusReport struct {
	Online     bool   `json:"online"`
	QueueDepth int    `json:"queue_depth"`
	Surveys    int    `json:"surveys"`
	DBPath     string `json:"db_path"`
}

// newStatusCmd builds the status command: connectivity, queue depth, and
// local cache summary.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and pending sync work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()

			online := a.monitor.Probe(ctx)

			depth, err := a.store.QueueDepth(ctx)
			if err != nil {
				return err
			}

			surveys, err := a.store.ListSurveys(ctx)
			if err != nil {
				return err
			}

			report := statusReport{
				Online:     online,
				QueueDepth: depth,
				Surveys:    len(surveys),
				DBPath:     resolvedCfg.Storage.DBPath,
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(report)
			}

			state := "offline"
			if report.Online {
				state = "online"
			}

			fmt.Printf("Backend:      %s\n", state)
			fmt.Printf("Queued items: %d\n", report.QueueDepth)
			fmt.Printf("Surveys:      %d cached locally\n", report.Surveys)
			fmt.Printf("Database:     %s\n", report.DBPath)

			return nil
		},
	}
}
