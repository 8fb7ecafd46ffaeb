package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit bounds the WAL file at 64 MiB.
const walJournalSizeLimit = 67108864

// Store is the local durable store: one SQLite table per entity plus the
// sync queue, surviving process restarts. All application access to local
// state is funneled through it. Storage-engine errors propagate to the
// caller; there is no automatic retry inside the store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	surveyStmts    surveyStatements
	zoneStmts      childStatements
	noteStmts      childStatements
	mediaStmts     childStatements
	checklistStmts childStatements
	utilityStmts   utilityStatements
	queueStmts     queueStatements
}

// Statement groups, one per table, to avoid a flat list of 30+ fields.
type surveyStatements struct {
	get, upsert, delete, listAll, listNeedsSync *sql.Stmt
}

// childStatements covers the survey-owned tables (zones, notes, media,
// checklist responses), which share the same access patterns.
type childStatements struct {
	get, upsert, delete, listBySurvey, listNeedsSync *sql.Stmt
}

type utilityStatements struct {
	get, upsert, delete, listAll *sql.Stmt
}

type queueStatements struct {
	insert, nextBatch, remove, bumpRetry, depth *sql.Stmt
}

// NewStore opens the database at dbPath, applies migrations, and prepares
// all repeated statements. Use ":memory:" for tests.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	logger.Info("opening local survey database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sync: open sqlite: %w", err)
	}

	// Sole-writer: serializes conflicting writes through one connection.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync: prepare statements: %w", err)
	}

	logger.Info("local survey database ready", "path", dbPath)

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("sync: set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", "pragma", p.desc)
	}

	return nil
}

// stmtDef maps a SQL string to the prepared statement pointer it should
// populate. Used by prepareAll to eliminate repetitive error handling.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

// prepareAll prepares a batch of statements, returning on first error.
func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *Store) prepareAllStatements(ctx context.Context) error {
	preparers := []func(context.Context) error{
		s.prepareSurveyStmts,
		s.prepareZoneStmts,
		s.prepareNoteStmts,
		s.prepareMediaStmts,
		s.prepareChecklistStmts,
		s.prepareUtilityStmts,
		s.prepareQueueStmts,
	}

	for _, prepare := range preparers {
		if err := prepare(ctx); err != nil {
			return err
		}
	}

	return nil
}

// --- JSON column helpers ---

// marshalJSON encodes v for a JSON TEXT column, mapping nil-ish values to
// the given empty literal ("{}" or "[]").
func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sync: encoding json column: %w", err)
	}

	out := string(b)
	if out == "null" {
		return empty, nil
	}

	return out, nil
}

// unmarshalJSON decodes a JSON TEXT column into dest, tolerating empty
// strings left by older rows.
func unmarshalJSON(raw string, dest any) error {
	if raw == "" {
		return nil
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("sync: decoding json column: %w", err)
	}

	return nil
}

// --- Cross-table helpers ---

// entityTables maps entity kinds to their table names. The map doubles as
// a whitelist: kinds not present here can never reach a SQL string.
var entityTables = map[EntityKind]string{
	KindSurvey:    "surveys",
	KindZone:      "zones",
	KindNote:      "notes",
	KindMedia:     "media",
	KindChecklist: "checklist_responses",
	KindUtility:   "utility_entries",
}

// MarkSynced clears the needs_sync flag on an entity row, stamps
// last_synced_at, and clears any recorded sync error. Called by the queue
// processor after a successful remote apply.
func (s *Store) MarkSynced(ctx context.Context, kind EntityKind, id string) error {
	table, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("sync: mark synced: unknown entity kind %q", kind)
	}

	//nolint:gosec // table comes from the entityTables whitelist, never user input
	query := `UPDATE ` + table + ` SET needs_sync = 0, last_synced_at = ?, last_sync_error = '' WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, NowNano(), id); err != nil {
		return fmt.Errorf("sync: mark synced %s/%s: %w", kind, id, err)
	}

	return nil
}

// RecordSyncError stamps a sync error message on an entity row without
// touching needs_sync. Used on retry exhaustion so the dirty state stays
// visible and the startup requeue pass can pick the entity up again.
func (s *Store) RecordSyncError(ctx context.Context, kind EntityKind, id, errMsg string) error {
	table, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("sync: record sync error: unknown entity kind %q", kind)
	}

	//nolint:gosec // table comes from the entityTables whitelist, never user input
	query := `UPDATE ` + table + ` SET last_sync_error = ? WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, errMsg, id); err != nil {
		return fmt.Errorf("sync: record sync error %s/%s: %w", kind, id, err)
	}

	return nil
}

// DeleteEntity hard-deletes an entity row by id.
func (s *Store) DeleteEntity(ctx context.Context, kind EntityKind, id string) error {
	table, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("sync: delete: unknown entity kind %q", kind)
	}

	//nolint:gosec // table comes from the entityTables whitelist, never user input
	query := `DELETE FROM ` + table + ` WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("sync: delete %s/%s: %w", kind, id, err)
	}

	return nil
}

// Transaction runs fn inside a single database transaction spanning any
// number of tables. Used by cleanup/eviction so that purging a survey and
// its children is atomic.
func (s *Store) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync: begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			return fmt.Errorf("sync: transaction: %w (rollback: %v)", err, rollbackErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync: commit transaction: %w", err)
	}

	return nil
}

// Close closes all prepared statements and the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing local survey database")

	if err := s.closeStatements(); err != nil {
		s.logger.Error("error closing statements", "error", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sync: close database: %w", err)
	}

	return nil
}

func (s *Store) closeStatements() error {
	groups := [][]*sql.Stmt{
		{s.surveyStmts.get, s.surveyStmts.upsert, s.surveyStmts.delete,
			s.surveyStmts.listAll, s.surveyStmts.listNeedsSync},
		{s.zoneStmts.get, s.zoneStmts.upsert, s.zoneStmts.delete,
			s.zoneStmts.listBySurvey, s.zoneStmts.listNeedsSync},
		{s.noteStmts.get, s.noteStmts.upsert, s.noteStmts.delete,
			s.noteStmts.listBySurvey, s.noteStmts.listNeedsSync},
		{s.mediaStmts.get, s.mediaStmts.upsert, s.mediaStmts.delete,
			s.mediaStmts.listBySurvey, s.mediaStmts.listNeedsSync},
		{s.checklistStmts.get, s.checklistStmts.upsert, s.checklistStmts.delete,
			s.checklistStmts.listBySurvey, s.checklistStmts.listNeedsSync},
		{s.utilityStmts.get, s.utilityStmts.upsert, s.utilityStmts.delete,
			s.utilityStmts.listAll},
		{s.queueStmts.insert, s.queueStmts.nextBatch, s.queueStmts.remove,
			s.queueStmts.bumpRetry, s.queueStmts.depth},
	}

	var errs []string

	for _, group := range groups {
		for _, stmt := range group {
			if stmt == nil {
				continue
			}

			if err := stmt.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close statements: %s", strings.Join(errs, "; "))
	}

	return nil
}
