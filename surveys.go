package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	syncpkg "github.com/fairlead/surveysync/internal/sync"
)

// newSurveysCmd builds the surveys command: the deduplicated merged view
// of local and remote surveys, plus per-survey detail and delete.
func newSurveysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surveys",
		Short: "List surveys, merging local and remote copies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()

			a.monitor.Probe(ctx)

			merged, err := a.engine.MergedSurveys(ctx)
			if err != nil {
				return err
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(surveyRows(merged))
			}

			headers := []string{"SHIP", "CLIENT", "DATE", "STATUS", "SYNC", "CREATED"}

			rows := make([][]string, 0, len(merged))
			for _, sv := range merged {
				rows = append(rows, []string{
					sv.ShipName,
					sv.ClientName,
					sv.SurveyDate,
					string(sv.Status),
					colorizeSyncState(syncState(sv)),
					formatTime(time.Unix(0, sv.CreatedAt)),
				})
			}

			printTable(os.Stdout, headers, rows)

			return nil
		},
	}

	cmd.AddCommand(newSurveysShowCmd())
	cmd.AddCommand(newSurveysDeleteCmd())

	return cmd
}

// newSurveysShowCmd builds the surveys show subcommand: one survey with
// its zones, notes, media, and checklist responses from the local store.
func newSurveysShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <survey-id>",
		Short: "Show a locally stored survey and its child records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id := args[0]

			sv, err := a.store.GetSurvey(ctx, id)
			if err != nil {
				return err
			}

			if sv == nil {
				return fmt.Errorf("no local survey with id %s", id)
			}

			return printSurveyDetail(ctx, a, sv)
		},
	}
}

// newSurveysDeleteCmd builds the surveys delete subcommand. The delete
// cascades locally and queues remote deletes for the survey and every
// child record; it refuses to run while offline.
func newSurveysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <survey-id>",
		Short: "Delete a survey and all of its child records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()

			a.monitor.Probe(ctx)

			if err := a.repo.DeleteSurvey(ctx, args[0]); err != nil {
				return err
			}

			result, err := a.engine.SyncNow(ctx)
			if err != nil {
				return err
			}

			statusf(flagQuiet, "Survey deleted (%d remote deletes pushed).\n", result.Pushed)

			return nil
		},
	}
}

// printSurveyDetail renders one survey and its children.
func printSurveyDetail(ctx context.Context, a *app, sv *syncpkg.Survey) error {
	zones, err := a.store.ListZones(ctx, sv.ID)
	if err != nil {
		return err
	}

	notes, err := a.store.ListNotes(ctx, sv.ID)
	if err != nil {
		return err
	}

	media, err := a.store.ListMedia(ctx, sv.ID)
	if err != nil {
		return err
	}

	checklists, err := a.store.ListChecklistResponses(ctx, sv.ID)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(map[string]any{
			"survey":              sv,
			"zones":               zones,
			"notes":               notes,
			"media":               media,
			"checklist_responses": checklists,
		})
	}

	fmt.Printf("%s for %s (%s, %s, sync: %s)\n",
		sv.ShipName, sv.ClientName, sv.SurveyDate, sv.Status, syncState(sv))

	if len(zones) > 0 {
		fmt.Println("\nZones:")

		rows := make([][]string, 0, len(zones))
		for _, z := range zones {
			rows = append(rows, []string{z.Name, z.DeckNumber, z.Section, z.FrameRange})
		}

		printTable(os.Stdout, []string{"NAME", "DECK", "SECTION", "FRAMES"}, rows)
	}

	if len(notes) > 0 {
		fmt.Println("\nNotes:")

		for _, n := range notes {
			fmt.Printf("  %s  %s\n", formatTime(time.Unix(0, n.CreatedAt)), n.Text)
		}
	}

	if len(media) > 0 {
		fmt.Println("\nMedia:")

		rows := make([][]string, 0, len(media))
		for _, m := range media {
			rows = append(rows, []string{m.FileName, m.FileType, m.StoragePath})
		}

		printTable(os.Stdout, []string{"FILE", "TYPE", "STORAGE"}, rows)
	}

	if len(checklists) > 0 {
		fmt.Printf("\nChecklist responses: %d\n", len(checklists))
	}

	return nil
}

// surveyRow is the machine-readable form of one merged survey.
type surveyRow struct {
	ID         string `json:"id"`
	ShipName   string `json:"ship_name"`
	ClientName string `json:"client_name"`
	SurveyDate string `json:"survey_date"`
	Status     string `json:"status"`
	NeedsSync  bool   `json:"needs_sync"`
	SyncError  string `json:"sync_error,omitempty"`
}

func surveyRows(surveys []*syncpkg.Survey) []surveyRow {
	rows := make([]surveyRow, 0, len(surveys))
	for _, sv := range surveys {
		rows = append(rows, surveyRow{
			ID:         sv.ID,
			ShipName:   sv.ShipName,
			ClientName: sv.ClientName,
			SurveyDate: sv.SurveyDate,
			Status:     string(sv.Status),
			NeedsSync:  sv.NeedsSync,
			SyncError:  sv.LastSyncError,
		})
	}

	return rows
}

// syncState renders a survey's sync bookkeeping as one word.
func syncState(sv *syncpkg.Survey) string {
	switch {
	case sv.LastSyncError != "":
		return "error"
	case sv.NeedsSync:
		return "pending"
	default:
		return "synced"
	}
}
