package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Zone queries.
const (
	sqlZoneColumns = `id, survey_id, name, type_tags, deck_number, section,
		frame_range, created_at, updated_at,
		needs_sync, offline_created, version, last_synced_at, last_sync_error`

	sqlGetZone = `SELECT ` + sqlZoneColumns + ` FROM zones WHERE id = ?`

	sqlUpsertZone = `INSERT INTO zones (` + sqlZoneColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			survey_id       = excluded.survey_id,
			name            = excluded.name,
			type_tags       = excluded.type_tags,
			deck_number     = excluded.deck_number,
			section         = excluded.section,
			frame_range     = excluded.frame_range,
			updated_at      = excluded.updated_at,
			needs_sync      = excluded.needs_sync,
			offline_created = excluded.offline_created,
			version         = excluded.version,
			last_synced_at  = excluded.last_synced_at,
			last_sync_error = excluded.last_sync_error`

	sqlDeleteZone = `DELETE FROM zones WHERE id = ?`

	sqlListZonesBySurvey = `SELECT ` + sqlZoneColumns + ` FROM zones
		WHERE survey_id = ? ORDER BY created_at ASC`

	sqlListDirtyZones = `SELECT ` + sqlZoneColumns + ` FROM zones
		WHERE needs_sync = 1`
)

func (s *Store) prepareZoneStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.zoneStmts.get, sqlGetZone, "getZone"},
		{&s.zoneStmts.upsert, sqlUpsertZone, "upsertZone"},
		{&s.zoneStmts.delete, sqlDeleteZone, "deleteZone"},
		{&s.zoneStmts.listBySurvey, sqlListZonesBySurvey, "listZonesBySurvey"},
		{&s.zoneStmts.listNeedsSync, sqlListDirtyZones, "listDirtyZones"},
	})
}

func scanZone(row interface{ Scan(...any) error }) (*Zone, error) {
	var (
		z         Zone
		tags      string
		needsSync int
		offline   int
	)

	err := row.Scan(
		&z.ID, &z.SurveyID, &z.Name, &tags, &z.DeckNumber, &z.Section,
		&z.FrameRange, &z.CreatedAt, &z.UpdatedAt,
		&needsSync, &offline, &z.Version, &z.LastSyncedAt, &z.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	z.NeedsSync = needsSync == 1
	z.OfflineCreated = offline == 1

	if err := unmarshalJSON(tags, &z.TypeTags); err != nil {
		return nil, err
	}

	return &z, nil
}

// GetZone retrieves a single zone by id. Returns (nil, nil) when no row exists.
func (s *Store) GetZone(ctx context.Context, id string) (*Zone, error) {
	z, err := scanZone(s.zoneStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get zone %s: %w", id, err)
	}

	return z, nil
}

// PutZone inserts or updates a zone by primary key.
func (s *Store) PutZone(ctx context.Context, z *Zone) error {
	s.logger.Debug("upserting zone", "id", z.ID, "survey_id", z.SurveyID)

	tags, err := marshalJSON(z.TypeTags, "[]")
	if err != nil {
		return err
	}

	_, err = s.zoneStmts.upsert.ExecContext(ctx,
		z.ID, z.SurveyID, z.Name, tags, z.DeckNumber, z.Section,
		z.FrameRange, z.CreatedAt, z.UpdatedAt,
		boolInt(z.NeedsSync), boolInt(z.OfflineCreated),
		z.Version, z.LastSyncedAt, z.LastSyncError,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert zone %s: %w", z.ID, err)
	}

	return nil
}

// DeleteZone hard-deletes a zone row.
func (s *Store) DeleteZone(ctx context.Context, id string) error {
	if _, err := s.zoneStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: delete zone %s: %w", id, err)
	}

	return nil
}

// ListZones returns all zones belonging to a survey, oldest first.
func (s *Store) ListZones(ctx context.Context, surveyID string) ([]*Zone, error) {
	rows, err := s.zoneStmts.listBySurvey.QueryContext(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("sync: list zones for %s: %w", surveyID, err)
	}
	defer rows.Close()

	return scanZoneRows(rows)
}

// ListDirtyZones returns all zones still flagged needs_sync.
func (s *Store) ListDirtyZones(ctx context.Context) ([]*Zone, error) {
	rows, err := s.zoneStmts.listNeedsSync.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list dirty zones: %w", err)
	}
	defer rows.Close()

	return scanZoneRows(rows)
}

func scanZoneRows(rows *sql.Rows) ([]*Zone, error) {
	var zones []*Zone

	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan zone row: %w", err)
		}

		zones = append(zones, z)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate zone rows: %w", err)
	}

	return zones, nil
}
