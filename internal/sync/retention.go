package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays is the age beyond which already-synced local records
// become eligible for eviction.
const DefaultRetentionDays = 30

// retentionHoursPerDay converts days to hours for duration calculation.
const retentionHoursPerDay = 24

// CleanupResult reports per-table eviction counts from one cleanup pass.
type CleanupResult struct {
	Surveys    int64
	Zones      int64
	Notes      int64
	Media      int64
	Checklists int64
	Utilities  int64
}

// Total returns the total number of evicted rows.
func (r *CleanupResult) Total() int64 {
	return r.Surveys + r.Zones + r.Notes + r.Media + r.Checklists + r.Utilities
}

// CleanupSynced evicts already-synced records older than retentionDays from
// every entity table in a single transaction. Records still flagged
// needs_sync are preserved regardless of age — local state that has not
// been confirmed remotely is never evicted.
func (s *Store) CleanupSynced(ctx context.Context, retentionDays int) (*CleanupResult, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	cutoff := time.Now().Add(
		-time.Duration(retentionDays) * retentionHoursPerDay * time.Hour,
	).UnixNano()

	s.logger.Info("cleaning up synced records",
		slog.Int("retention_days", retentionDays),
	)

	result := &CleanupResult{}

	targets := []struct {
		table string
		count *int64
	}{
		{"surveys", &result.Surveys},
		{"zones", &result.Zones},
		{"notes", &result.Notes},
		{"media", &result.Media},
		{"checklist_responses", &result.Checklists},
		{"utility_entries", &result.Utilities},
	}

	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		for _, t := range targets {
			n, err := purgeTable(ctx, tx, t.table, cutoff)
			if err != nil {
				return err
			}

			*t.count = n
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync: cleanup synced records: %w", err)
	}

	s.logger.Info("cleanup complete", slog.Int64("evicted", result.Total()))

	return result, nil
}

// purgeTable deletes synced rows older than cutoff from one table.
func purgeTable(ctx context.Context, tx *sql.Tx, table string, cutoff int64) (int64, error) {
	//nolint:gosec // table names come from the fixed target list above
	query := `DELETE FROM ` + table + ` WHERE needs_sync = 0 AND created_at < ?`

	result, err := tx.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge %s rows affected: %w", table, err)
	}

	return n, nil
}
