package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Checklist response queries.
const (
	sqlChecklistColumns = `id, survey_id, zone_id, question_id, category,
		question_text, response, mandatory, note, asset_tag, qr_code,
		rfid_tag, created_at, updated_at,
		needs_sync, offline_created, version, last_synced_at, last_sync_error`

	sqlGetChecklist = `SELECT ` + sqlChecklistColumns +
		` FROM checklist_responses WHERE id = ?`

	sqlUpsertChecklist = `INSERT INTO checklist_responses (` + sqlChecklistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			survey_id       = excluded.survey_id,
			zone_id         = excluded.zone_id,
			question_id     = excluded.question_id,
			category        = excluded.category,
			question_text   = excluded.question_text,
			response        = excluded.response,
			mandatory       = excluded.mandatory,
			note            = excluded.note,
			asset_tag       = excluded.asset_tag,
			qr_code         = excluded.qr_code,
			rfid_tag        = excluded.rfid_tag,
			updated_at      = excluded.updated_at,
			needs_sync      = excluded.needs_sync,
			offline_created = excluded.offline_created,
			version         = excluded.version,
			last_synced_at  = excluded.last_synced_at,
			last_sync_error = excluded.last_sync_error`

	sqlDeleteChecklist = `DELETE FROM checklist_responses WHERE id = ?`

	sqlListChecklistBySurvey = `SELECT ` + sqlChecklistColumns +
		` FROM checklist_responses WHERE survey_id = ? ORDER BY created_at ASC`

	sqlListDirtyChecklist = `SELECT ` + sqlChecklistColumns +
		` FROM checklist_responses WHERE needs_sync = 1`
)

func (s *Store) prepareChecklistStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.checklistStmts.get, sqlGetChecklist, "getChecklist"},
		{&s.checklistStmts.upsert, sqlUpsertChecklist, "upsertChecklist"},
		{&s.checklistStmts.delete, sqlDeleteChecklist, "deleteChecklist"},
		{&s.checklistStmts.listBySurvey, sqlListChecklistBySurvey, "listChecklistBySurvey"},
		{&s.checklistStmts.listNeedsSync, sqlListDirtyChecklist, "listDirtyChecklist"},
	})
}

func scanChecklist(row interface{ Scan(...any) error }) (*ChecklistResponse, error) {
	var (
		c         ChecklistResponse
		mandatory int
		needsSync int
		offline   int
	)

	err := row.Scan(
		&c.ID, &c.SurveyID, &c.ZoneID, &c.QuestionID, &c.Category,
		&c.QuestionText, &c.Response, &mandatory, &c.Note, &c.AssetTag,
		&c.QRCode, &c.RFIDTag, &c.CreatedAt, &c.UpdatedAt,
		&needsSync, &offline, &c.Version, &c.LastSyncedAt, &c.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	c.Mandatory = mandatory == 1
	c.NeedsSync = needsSync == 1
	c.OfflineCreated = offline == 1

	return &c, nil
}

// GetChecklistResponse retrieves a single checklist response by id.
// Returns (nil, nil) when no row exists.
func (s *Store) GetChecklistResponse(ctx context.Context, id string) (*ChecklistResponse, error) {
	c, err := scanChecklist(s.checklistStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get checklist response %s: %w", id, err)
	}

	return c, nil
}

// PutChecklistResponse inserts or updates a checklist response.
func (s *Store) PutChecklistResponse(ctx context.Context, c *ChecklistResponse) error {
	s.logger.Debug("upserting checklist response",
		"id", c.ID, "survey_id", c.SurveyID, "question_id", c.QuestionID)

	_, err := s.checklistStmts.upsert.ExecContext(ctx,
		c.ID, c.SurveyID, c.ZoneID, c.QuestionID, c.Category,
		c.QuestionText, string(c.Response), boolInt(c.Mandatory), c.Note,
		c.AssetTag, c.QRCode, c.RFIDTag, c.CreatedAt, c.UpdatedAt,
		boolInt(c.NeedsSync), boolInt(c.OfflineCreated),
		c.Version, c.LastSyncedAt, c.LastSyncError,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert checklist response %s: %w", c.ID, err)
	}

	return nil
}

// DeleteChecklistResponse hard-deletes a checklist response row.
func (s *Store) DeleteChecklistResponse(ctx context.Context, id string) error {
	if _, err := s.checklistStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: delete checklist response %s: %w", id, err)
	}

	return nil
}

// ListChecklistResponses returns all responses for a survey, oldest first.
func (s *Store) ListChecklistResponses(ctx context.Context, surveyID string) ([]*ChecklistResponse, error) {
	rows, err := s.checklistStmts.listBySurvey.QueryContext(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("sync: list checklist responses for %s: %w", surveyID, err)
	}
	defer rows.Close()

	return scanChecklistRows(rows)
}

// ListDirtyChecklistResponses returns all responses still flagged needs_sync.
func (s *Store) ListDirtyChecklistResponses(ctx context.Context) ([]*ChecklistResponse, error) {
	rows, err := s.checklistStmts.listNeedsSync.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list dirty checklist responses: %w", err)
	}
	defer rows.Close()

	return scanChecklistRows(rows)
}

func scanChecklistRows(rows *sql.Rows) ([]*ChecklistResponse, error) {
	var responses []*ChecklistResponse

	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan checklist row: %w", err)
		}

		responses = append(responses, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate checklist rows: %w", err)
	}

	return responses, nil
}
