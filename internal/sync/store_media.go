package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Media queries. The payload BLOB travels with the row so that files
// captured offline survive restarts until the upload succeeds.
const (
	sqlMediaColumns = `id, survey_id, zone_id, file_name, file_type,
		file_size, storage_path, thumbnail_path, payload,
		created_at, updated_at,
		needs_sync, offline_created, version, last_synced_at, last_sync_error`

	sqlGetMedia = `SELECT ` + sqlMediaColumns + ` FROM media WHERE id = ?`

	sqlUpsertMedia = `INSERT INTO media (` + sqlMediaColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			survey_id       = excluded.survey_id,
			zone_id         = excluded.zone_id,
			file_name       = excluded.file_name,
			file_type       = excluded.file_type,
			file_size       = excluded.file_size,
			storage_path    = excluded.storage_path,
			thumbnail_path  = excluded.thumbnail_path,
			payload         = excluded.payload,
			updated_at      = excluded.updated_at,
			needs_sync      = excluded.needs_sync,
			offline_created = excluded.offline_created,
			version         = excluded.version,
			last_synced_at  = excluded.last_synced_at,
			last_sync_error = excluded.last_sync_error`

	sqlDeleteMedia = `DELETE FROM media WHERE id = ?`

	sqlListMediaBySurvey = `SELECT ` + sqlMediaColumns + ` FROM media
		WHERE survey_id = ? ORDER BY created_at ASC`

	sqlListDirtyMedia = `SELECT ` + sqlMediaColumns + ` FROM media
		WHERE needs_sync = 1`
)

func (s *Store) prepareMediaStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.mediaStmts.get, sqlGetMedia, "getMedia"},
		{&s.mediaStmts.upsert, sqlUpsertMedia, "upsertMedia"},
		{&s.mediaStmts.delete, sqlDeleteMedia, "deleteMedia"},
		{&s.mediaStmts.listBySurvey, sqlListMediaBySurvey, "listMediaBySurvey"},
		{&s.mediaStmts.listNeedsSync, sqlListDirtyMedia, "listDirtyMedia"},
	})
}

func scanMedia(row interface{ Scan(...any) error }) (*Media, error) {
	var (
		m         Media
		needsSync int
		offline   int
	)

	err := row.Scan(
		&m.ID, &m.SurveyID, &m.ZoneID, &m.FileName, &m.FileType,
		&m.FileSize, &m.StoragePath, &m.ThumbnailPath, &m.Payload,
		&m.CreatedAt, &m.UpdatedAt,
		&needsSync, &offline, &m.Version, &m.LastSyncedAt, &m.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	m.NeedsSync = needsSync == 1
	m.OfflineCreated = offline == 1

	return &m, nil
}

// GetMedia retrieves a single media record by id. Returns (nil, nil) when
// no row exists.
func (s *Store) GetMedia(ctx context.Context, id string) (*Media, error) {
	m, err := scanMedia(s.mediaStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get media %s: %w", id, err)
	}

	return m, nil
}

// PutMedia inserts or updates a media record by primary key.
func (s *Store) PutMedia(ctx context.Context, m *Media) error {
	s.logger.Debug("upserting media",
		"id", m.ID, "survey_id", m.SurveyID, "file", m.FileName)

	_, err := s.mediaStmts.upsert.ExecContext(ctx,
		m.ID, m.SurveyID, m.ZoneID, m.FileName, m.FileType,
		m.FileSize, m.StoragePath, m.ThumbnailPath, m.Payload,
		m.CreatedAt, m.UpdatedAt,
		boolInt(m.NeedsSync), boolInt(m.OfflineCreated),
		m.Version, m.LastSyncedAt, m.LastSyncError,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert media %s: %w", m.ID, err)
	}

	return nil
}

// DeleteMedia hard-deletes a media row, payload included.
func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	if _, err := s.mediaStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: delete media %s: %w", id, err)
	}

	return nil
}

// ListMedia returns all media belonging to a survey, oldest first.
func (s *Store) ListMedia(ctx context.Context, surveyID string) ([]*Media, error) {
	rows, err := s.mediaStmts.listBySurvey.QueryContext(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("sync: list media for %s: %w", surveyID, err)
	}
	defer rows.Close()

	return scanMediaRows(rows)
}

// ListDirtyMedia returns all media still flagged needs_sync.
func (s *Store) ListDirtyMedia(ctx context.Context) ([]*Media, error) {
	rows, err := s.mediaStmts.listNeedsSync.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list dirty media: %w", err)
	}
	defer rows.Close()

	return scanMediaRows(rows)
}

func scanMediaRows(rows *sql.Rows) ([]*Media, error) {
	var media []*Media

	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan media row: %w", err)
		}

		media = append(media, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate media rows: %w", err)
	}

	return media, nil
}
