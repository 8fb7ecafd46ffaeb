package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Queue lifecycle: Enqueue → NextBatch → Remove (success or exhaustion) or
// BumpRetry (transient failure). Items drain in descending priority order;
// within one priority, insertion order. There is no dependency ordering
// between related items.

// Sync queue queries.
const (
	sqlQueueColumns = `id, kind, entity_id, action, payload, priority,
		retry_count, last_error, created_at`

	sqlEnqueue = `INSERT INTO sync_queue
		(kind, entity_id, action, payload, priority, retry_count, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, 0, '', ?)`

	sqlQueueNextBatch = `SELECT ` + sqlQueueColumns + ` FROM sync_queue
		ORDER BY priority DESC, id ASC LIMIT ?`

	sqlQueueRemove = `DELETE FROM sync_queue WHERE id = ?`

	sqlQueueBumpRetry = `UPDATE sync_queue
		SET retry_count = retry_count + 1, last_error = ?
		WHERE id = ?`

	sqlQueueDepth = `SELECT COUNT(*) FROM sync_queue`
)

func (s *Store) prepareQueueStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.queueStmts.insert, sqlEnqueue, "enqueue"},
		{&s.queueStmts.nextBatch, sqlQueueNextBatch, "queueNextBatch"},
		{&s.queueStmts.remove, sqlQueueRemove, "queueRemove"},
		{&s.queueStmts.bumpRetry, sqlQueueBumpRetry, "queueBumpRetry"},
		{&s.queueStmts.depth, sqlQueueDepth, "queueDepth"},
	})
}

// Enqueue appends a pending remote mutation to the durable queue and
// returns its row id.
func (s *Store) Enqueue(ctx context.Context, kind EntityKind, entityID string, action QueueAction) (int64, error) {
	return s.EnqueueWithPayload(ctx, kind, entityID, action, "")
}

// EnqueueWithPayload appends a mutation that carries auxiliary data the
// processor needs after the local row is gone, such as the storage object
// key of a deleted media file.
func (s *Store) EnqueueWithPayload(ctx context.Context, kind EntityKind, entityID string,
	action QueueAction, payload string,
) (int64, error) {
	priority := DefaultPriority(kind)

	result, err := s.queueStmts.insert.ExecContext(ctx,
		string(kind), entityID, string(action), payload, priority, NowNano())
	if err != nil {
		return 0, fmt.Errorf("sync: enqueue %s %s/%s: %w", action, kind, entityID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sync: enqueue last insert id: %w", err)
	}

	s.logger.Debug("queued mutation",
		slog.Int64("queue_id", id),
		slog.String("kind", string(kind)),
		slog.String("entity_id", entityID),
		slog.String("action", string(action)),
		slog.Int("priority", priority),
	)

	return id, nil
}

// NextBatch returns up to limit queue items in drain order.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]*QueueItem, error) {
	rows, err := s.queueStmts.nextBatch.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("sync: queue next batch: %w", err)
	}
	defer rows.Close()

	return scanQueueRows(rows)
}

// RemoveQueueItem deletes a queue row, either because the mutation was
// applied remotely or because its retries are exhausted.
func (s *Store) RemoveQueueItem(ctx context.Context, id int64) error {
	if _, err := s.queueStmts.remove.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: remove queue item %d: %w", id, err)
	}

	return nil
}

// BumpRetry increments a queue item's retry counter and records the error
// that caused the failed attempt.
func (s *Store) BumpRetry(ctx context.Context, id int64, errMsg string) error {
	if _, err := s.queueStmts.bumpRetry.ExecContext(ctx, errMsg, id); err != nil {
		return fmt.Errorf("sync: bump retry %d: %w", id, err)
	}

	return nil
}

// QueueDepth returns the number of pending queue items.
func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	var count int

	if err := s.queueStmts.depth.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("sync: queue depth: %w", err)
	}

	return count, nil
}

// HasQueuedEntity reports whether any queue item references the given
// entity. Used by the startup requeue pass to avoid double-enqueueing.
func (s *Store) HasQueuedEntity(ctx context.Context, kind EntityKind, entityID string) (bool, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE kind = ? AND entity_id = ?`,
		string(kind), entityID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sync: has queued entity %s/%s: %w", kind, entityID, err)
	}

	return count > 0, nil
}

func scanQueueRows(rows *sql.Rows) ([]*QueueItem, error) {
	var items []*QueueItem

	for rows.Next() {
		item := &QueueItem{}

		err := rows.Scan(
			&item.ID, &item.Kind, &item.EntityID, &item.Action, &item.Payload,
			&item.Priority, &item.RetryCount, &item.LastError, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sync: scan queue row: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate queue rows: %w", err)
	}

	return items, nil
}
