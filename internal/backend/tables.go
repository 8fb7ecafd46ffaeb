package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Table routes under the REST root.
const (
	tableSurveys    = "/surveys"
	tableZones      = "/survey_zones"
	tableNotes      = "/survey_notes"
	tableMedia      = "/survey_media"
	tableChecklists = "/survey_checklist_responses"
	tableTravel     = "/travel_expenses"
	tableUtilities  = "/utility_entries"
)

// idFilter builds the PostgREST-style primary key filter for a row.
func idFilter(table, id string) string {
	return table + "?id=eq." + url.QueryEscape(id)
}

// UpsertSurvey inserts or updates a survey row and returns the
// server-confirmed record.
func (c *Client) UpsertSurvey(ctx context.Context, rec *SurveyRecord) (*SurveyRecord, error) {
	var rows []SurveyRecord

	if err := c.doJSON(ctx, http.MethodPost, tableSurveys, rec, &rows); err != nil {
		return nil, fmt.Errorf("backend: upsert survey %s: %w", rec.ID, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("backend: upsert survey %s: empty response", rec.ID)
	}

	return &rows[0], nil
}

// DeleteSurvey removes a survey row by id.
func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, idFilter(tableSurveys, id), nil, nil); err != nil {
		return fmt.Errorf("backend: delete survey %s: %w", id, err)
	}

	return nil
}

// ListSurveys returns all server-confirmed survey rows.
func (c *Client) ListSurveys(ctx context.Context) ([]SurveyRecord, error) {
	var rows []SurveyRecord

	if err := c.doJSON(ctx, http.MethodGet, tableSurveys+"?order=created_at_ns.desc", nil, &rows); err != nil {
		return nil, fmt.Errorf("backend: list surveys: %w", err)
	}

	return rows, nil
}

// UpsertZone inserts or updates a zone row.
func (c *Client) UpsertZone(ctx context.Context, rec *ZoneRecord) error {
	if err := c.doJSON(ctx, http.MethodPost, tableZones, rec, nil); err != nil {
		return fmt.Errorf("backend: upsert zone %s: %w", rec.ID, err)
	}

	return nil
}

// DeleteZone removes a zone row by id.
func (c *Client) DeleteZone(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, idFilter(tableZones, id), nil, nil); err != nil {
		return fmt.Errorf("backend: delete zone %s: %w", id, err)
	}

	return nil
}

// UpsertNote inserts or updates a note row.
func (c *Client) UpsertNote(ctx context.Context, rec *NoteRecord) error {
	if err := c.doJSON(ctx, http.MethodPost, tableNotes, rec, nil); err != nil {
		return fmt.Errorf("backend: upsert note %s: %w", rec.ID, err)
	}

	return nil
}

// DeleteNote removes a note row by id.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, idFilter(tableNotes, id), nil, nil); err != nil {
		return fmt.Errorf("backend: delete note %s: %w", id, err)
	}

	return nil
}

// UpsertMedia inserts or updates a media metadata row. The blob itself is
// uploaded separately via UploadObject.
func (c *Client) UpsertMedia(ctx context.Context, rec *MediaRecord) error {
	if err := c.doJSON(ctx, http.MethodPost, tableMedia, rec, nil); err != nil {
		return fmt.Errorf("backend: upsert media %s: %w", rec.ID, err)
	}

	return nil
}

// DeleteMedia removes a media metadata row by id.
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, idFilter(tableMedia, id), nil, nil); err != nil {
		return fmt.Errorf("backend: delete media %s: %w", id, err)
	}

	return nil
}

// UpsertChecklistResponse inserts or updates a checklist response row.
func (c *Client) UpsertChecklistResponse(ctx context.Context, rec *ChecklistRecord) error {
	if err := c.doJSON(ctx, http.MethodPost, tableChecklists, rec, nil); err != nil {
		return fmt.Errorf("backend: upsert checklist response %s: %w", rec.ID, err)
	}

	return nil
}

// DeleteChecklistResponse removes a checklist response row by id.
func (c *Client) DeleteChecklistResponse(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, idFilter(tableChecklists, id), nil, nil); err != nil {
		return fmt.Errorf("backend: delete checklist response %s: %w", id, err)
	}

	return nil
}

// UpsertTravelExpense inserts or updates a travel expense row.
func (c *Client) UpsertTravelExpense(ctx context.Context, rec *TravelExpenseRecord) error {
	if err := c.doJSON(ctx, http.MethodPost, tableTravel, rec, nil); err != nil {
		return fmt.Errorf("backend: upsert travel expense %s: %w", rec.ID, err)
	}

	return nil
}

// DeleteTravelExpenses removes every travel expense row of a survey.
func (c *Client) DeleteTravelExpenses(ctx context.Context, surveyID string) error {
	path := tableTravel + "?survey_id=eq." + url.QueryEscape(surveyID)

	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("backend: delete travel expenses for survey %s: %w", surveyID, err)
	}

	return nil
}

// InsertUtilityEntries batch-inserts utility rows. Callers chunk their
// input (the importer uses groups of 10).
func (c *Client) InsertUtilityEntries(ctx context.Context, recs []UtilityRecord) error {
	if len(recs) == 0 {
		return nil
	}

	if err := c.doJSON(ctx, http.MethodPost, tableUtilities, recs, nil); err != nil {
		return fmt.Errorf("backend: insert %d utility entries: %w", len(recs), err)
	}

	return nil
}
