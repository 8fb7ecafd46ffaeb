package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Utility entry queries.
const (
	sqlUtilityColumns = `id, reading_date, utility_type, supplier, amount,
		reading, unit, notes, created_at,
		needs_sync, offline_created, version, last_synced_at, last_sync_error`

	sqlGetUtility = `SELECT ` + sqlUtilityColumns +
		` FROM utility_entries WHERE id = ?`

	sqlUpsertUtility = `INSERT INTO utility_entries (` + sqlUtilityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reading_date    = excluded.reading_date,
			utility_type    = excluded.utility_type,
			supplier        = excluded.supplier,
			amount          = excluded.amount,
			reading         = excluded.reading,
			unit            = excluded.unit,
			notes           = excluded.notes,
			needs_sync      = excluded.needs_sync,
			offline_created = excluded.offline_created,
			version         = excluded.version,
			last_synced_at  = excluded.last_synced_at,
			last_sync_error = excluded.last_sync_error`

	sqlDeleteUtility = `DELETE FROM utility_entries WHERE id = ?`

	sqlListUtilities = `SELECT ` + sqlUtilityColumns +
		` FROM utility_entries ORDER BY reading_date DESC, created_at DESC`
)

func (s *Store) prepareUtilityStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.utilityStmts.get, sqlGetUtility, "getUtility"},
		{&s.utilityStmts.upsert, sqlUpsertUtility, "upsertUtility"},
		{&s.utilityStmts.delete, sqlDeleteUtility, "deleteUtility"},
		{&s.utilityStmts.listAll, sqlListUtilities, "listUtilities"},
	})
}

func scanUtility(row interface{ Scan(...any) error }) (*UtilityEntry, error) {
	var (
		u         UtilityEntry
		needsSync int
		offline   int
	)

	err := row.Scan(
		&u.ID, &u.ReadingDate, &u.UtilityType, &u.Supplier, &u.Amount,
		&u.Reading, &u.Unit, &u.Notes, &u.CreatedAt,
		&needsSync, &offline, &u.Version, &u.LastSyncedAt, &u.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	u.NeedsSync = needsSync == 1
	u.OfflineCreated = offline == 1

	return &u, nil
}

// GetUtilityEntry retrieves a single utility entry by id.
// Returns (nil, nil) when no row exists.
func (s *Store) GetUtilityEntry(ctx context.Context, id string) (*UtilityEntry, error) {
	u, err := scanUtility(s.utilityStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get utility entry %s: %w", id, err)
	}

	return u, nil
}

// PutUtilityEntry inserts or updates a utility entry.
func (s *Store) PutUtilityEntry(ctx context.Context, u *UtilityEntry) error {
	s.logger.Debug("upserting utility entry",
		"id", u.ID, "type", u.UtilityType, "date", u.ReadingDate)

	_, err := s.utilityStmts.upsert.ExecContext(ctx,
		u.ID, u.ReadingDate, u.UtilityType, u.Supplier, u.Amount,
		u.Reading, u.Unit, u.Notes, u.CreatedAt,
		boolInt(u.NeedsSync), boolInt(u.OfflineCreated),
		u.Version, u.LastSyncedAt, u.LastSyncError,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert utility entry %s: %w", u.ID, err)
	}

	return nil
}

// DeleteUtilityEntry hard-deletes a utility entry row.
func (s *Store) DeleteUtilityEntry(ctx context.Context, id string) error {
	if _, err := s.utilityStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: delete utility entry %s: %w", id, err)
	}

	return nil
}

// ListUtilityEntries returns all utility entries, newest reading first.
func (s *Store) ListUtilityEntries(ctx context.Context) ([]*UtilityEntry, error) {
	rows, err := s.utilityStmts.listAll.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list utility entries: %w", err)
	}
	defer rows.Close()

	var entries []*UtilityEntry

	for rows.Next() {
		u, err := scanUtility(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan utility row: %w", err)
		}

		entries = append(entries, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate utility rows: %w", err)
	}

	return entries, nil
}

// ListDirtyUtilityEntries returns all utility entries still flagged
// needs_sync. Used by the startup requeue pass; not on the hot path, so it
// runs unprepared.
func (s *Store) ListDirtyUtilityEntries(ctx context.Context) ([]*UtilityEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlUtilityColumns+` FROM utility_entries WHERE needs_sync = 1`)
	if err != nil {
		return nil, fmt.Errorf("sync: list dirty utility entries: %w", err)
	}
	defer rows.Close()

	var entries []*UtilityEntry

	for rows.Next() {
		u, err := scanUtility(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan utility row: %w", err)
		}

		entries = append(entries, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate utility rows: %w", err)
	}

	return entries, nil
}
