package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Note queries.
const (
	sqlNoteColumns = `id, survey_id, zone_id, body, created_at, updated_at,
		needs_sync, offline_created, version, last_synced_at, last_sync_error`

	sqlGetNote = `SELECT ` + sqlNoteColumns + ` FROM notes WHERE id = ?`

	sqlUpsertNote = `INSERT INTO notes (` + sqlNoteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			survey_id       = excluded.survey_id,
			zone_id         = excluded.zone_id,
			body            = excluded.body,
			updated_at      = excluded.updated_at,
			needs_sync      = excluded.needs_sync,
			offline_created = excluded.offline_created,
			version         = excluded.version,
			last_synced_at  = excluded.last_synced_at,
			last_sync_error = excluded.last_sync_error`

	sqlDeleteNote = `DELETE FROM notes WHERE id = ?`

	sqlListNotesBySurvey = `SELECT ` + sqlNoteColumns + ` FROM notes
		WHERE survey_id = ? ORDER BY created_at ASC`

	sqlListDirtyNotes = `SELECT ` + sqlNoteColumns + ` FROM notes
		WHERE needs_sync = 1`
)

func (s *Store) prepareNoteStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.noteStmts.get, sqlGetNote, "getNote"},
		{&s.noteStmts.upsert, sqlUpsertNote, "upsertNote"},
		{&s.noteStmts.delete, sqlDeleteNote, "deleteNote"},
		{&s.noteStmts.listBySurvey, sqlListNotesBySurvey, "listNotesBySurvey"},
		{&s.noteStmts.listNeedsSync, sqlListDirtyNotes, "listDirtyNotes"},
	})
}

func scanNote(row interface{ Scan(...any) error }) (*Note, error) {
	var (
		n         Note
		needsSync int
		offline   int
	)

	err := row.Scan(
		&n.ID, &n.SurveyID, &n.ZoneID, &n.Text, &n.CreatedAt, &n.UpdatedAt,
		&needsSync, &offline, &n.Version, &n.LastSyncedAt, &n.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	n.NeedsSync = needsSync == 1
	n.OfflineCreated = offline == 1

	return &n, nil
}

// GetNote retrieves a single note by id. Returns (nil, nil) when no row exists.
func (s *Store) GetNote(ctx context.Context, id string) (*Note, error) {
	n, err := scanNote(s.noteStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get note %s: %w", id, err)
	}

	return n, nil
}

// PutNote inserts or updates a note by primary key.
func (s *Store) PutNote(ctx context.Context, n *Note) error {
	s.logger.Debug("upserting note", "id", n.ID, "survey_id", n.SurveyID)

	_, err := s.noteStmts.upsert.ExecContext(ctx,
		n.ID, n.SurveyID, n.ZoneID, n.Text, n.CreatedAt, n.UpdatedAt,
		boolInt(n.NeedsSync), boolInt(n.OfflineCreated),
		n.Version, n.LastSyncedAt, n.LastSyncError,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert note %s: %w", n.ID, err)
	}

	return nil
}

// DeleteNote hard-deletes a note row.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if _, err := s.noteStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: delete note %s: %w", id, err)
	}

	return nil
}

// ListNotes returns all notes belonging to a survey, oldest first.
func (s *Store) ListNotes(ctx context.Context, surveyID string) ([]*Note, error) {
	rows, err := s.noteStmts.listBySurvey.QueryContext(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("sync: list notes for %s: %w", surveyID, err)
	}
	defer rows.Close()

	return scanNoteRows(rows)
}

// ListDirtyNotes returns all notes still flagged needs_sync.
func (s *Store) ListDirtyNotes(ctx context.Context) ([]*Note, error) {
	rows, err := s.noteStmts.listNeedsSync.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list dirty notes: %w", err)
	}
	defer rows.Close()

	return scanNoteRows(rows)
}

func scanNoteRows(rows *sql.Rows) ([]*Note, error) {
	var notes []*Note

	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan note row: %w", err)
		}

		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate note rows: %w", err)
	}

	return notes, nil
}
