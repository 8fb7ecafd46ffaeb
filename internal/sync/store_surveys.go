package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Survey queries.
const (
	sqlSurveyColumns = `id, client_name, client_country, client_contacts,
		ship_name, location, survey_date, duration_days, scope, status,
		custom_fields, flight_details, hotel_details,
		created_at, updated_at,
		needs_sync, offline_created, version, last_synced_at, last_sync_error`

	sqlGetSurvey = `SELECT ` + sqlSurveyColumns + ` FROM surveys WHERE id = ?`

	sqlUpsertSurvey = `INSERT INTO surveys (` + sqlSurveyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_name     = excluded.client_name,
			client_country  = excluded.client_country,
			client_contacts = excluded.client_contacts,
			ship_name       = excluded.ship_name,
			location        = excluded.location,
			survey_date     = excluded.survey_date,
			duration_days   = excluded.duration_days,
			scope           = excluded.scope,
			status          = excluded.status,
			custom_fields   = excluded.custom_fields,
			flight_details  = excluded.flight_details,
			hotel_details   = excluded.hotel_details,
			updated_at      = excluded.updated_at,
			needs_sync      = excluded.needs_sync,
			offline_created = excluded.offline_created,
			version         = excluded.version,
			last_synced_at  = excluded.last_synced_at,
			last_sync_error = excluded.last_sync_error`

	sqlDeleteSurvey = `DELETE FROM surveys WHERE id = ?`

	sqlListSurveys = `SELECT ` + sqlSurveyColumns + ` FROM surveys
		ORDER BY created_at DESC`

	sqlListDirtySurveys = `SELECT ` + sqlSurveyColumns + ` FROM surveys
		WHERE needs_sync = 1`
)

func (s *Store) prepareSurveyStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.surveyStmts.get, sqlGetSurvey, "getSurvey"},
		{&s.surveyStmts.upsert, sqlUpsertSurvey, "upsertSurvey"},
		{&s.surveyStmts.delete, sqlDeleteSurvey, "deleteSurvey"},
		{&s.surveyStmts.listAll, sqlListSurveys, "listSurveys"},
		{&s.surveyStmts.listNeedsSync, sqlListDirtySurveys, "listDirtySurveys"},
	})
}

// scanSurvey scans a full survey row, decoding the JSON columns.
func scanSurvey(row interface{ Scan(...any) error }) (*Survey, error) {
	var (
		sv        Survey
		contacts  string
		custom    string
		flight    string
		hotel     string
		needsSync int
		offline   int
	)

	err := row.Scan(
		&sv.ID, &sv.ClientName, &sv.ClientCountry, &contacts,
		&sv.ShipName, &sv.Location, &sv.SurveyDate, &sv.DurationDays,
		&sv.Scope, &sv.Status, &custom, &flight, &hotel,
		&sv.CreatedAt, &sv.UpdatedAt,
		&needsSync, &offline, &sv.Version, &sv.LastSyncedAt, &sv.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	sv.NeedsSync = needsSync == 1
	sv.OfflineCreated = offline == 1

	if err := unmarshalJSON(contacts, &sv.ClientContacts); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(custom, &sv.CustomFields); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(flight, &sv.FlightDetails); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(hotel, &sv.HotelDetails); err != nil {
		return nil, err
	}

	return &sv, nil
}

// upsertSurveyArgs returns the argument slice for the upsert statement.
func upsertSurveyArgs(sv *Survey) ([]any, error) {
	contacts, err := marshalJSON(sv.ClientContacts, "[]")
	if err != nil {
		return nil, err
	}

	custom, err := marshalJSON(sv.CustomFields, "{}")
	if err != nil {
		return nil, err
	}

	flight, err := marshalJSON(sv.FlightDetails, "{}")
	if err != nil {
		return nil, err
	}

	hotel, err := marshalJSON(sv.HotelDetails, "{}")
	if err != nil {
		return nil, err
	}

	return []any{
		sv.ID, sv.ClientName, sv.ClientCountry, contacts,
		sv.ShipName, sv.Location, sv.SurveyDate, sv.DurationDays,
		sv.Scope, string(sv.Status), custom, flight, hotel,
		sv.CreatedAt, sv.UpdatedAt,
		boolInt(sv.NeedsSync), boolInt(sv.OfflineCreated),
		sv.Version, sv.LastSyncedAt, sv.LastSyncError,
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// GetSurvey retrieves a single survey by id. Returns (nil, nil) when no
// row exists — callers use the nil survey to distinguish create from update.
func (s *Store) GetSurvey(ctx context.Context, id string) (*Survey, error) {
	sv, err := scanSurvey(s.surveyStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get survey %s: %w", id, err)
	}

	return sv, nil
}

// PutSurvey inserts or updates a survey by primary key. There is no
// optimistic-lock check against version — last write wins.
func (s *Store) PutSurvey(ctx context.Context, sv *Survey) error {
	s.logger.Debug("upserting survey", "id", sv.ID, "ship", sv.ShipName)

	args, err := upsertSurveyArgs(sv)
	if err != nil {
		return err
	}

	if _, err := s.surveyStmts.upsert.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("sync: upsert survey %s: %w", sv.ID, err)
	}

	return nil
}

// DeleteSurvey hard-deletes a survey row.
func (s *Store) DeleteSurvey(ctx context.Context, id string) error {
	s.logger.Debug("deleting survey", "id", id)

	if _, err := s.surveyStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("sync: delete survey %s: %w", id, err)
	}

	return nil
}

// ListSurveys returns all locally cached surveys, newest first.
func (s *Store) ListSurveys(ctx context.Context) ([]*Survey, error) {
	rows, err := s.surveyStmts.listAll.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list surveys: %w", err)
	}
	defer rows.Close()

	return scanSurveyRows(rows)
}

// ListDirtySurveys returns all surveys still flagged needs_sync.
func (s *Store) ListDirtySurveys(ctx context.Context) ([]*Survey, error) {
	rows, err := s.surveyStmts.listNeedsSync.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: list dirty surveys: %w", err)
	}
	defer rows.Close()

	return scanSurveyRows(rows)
}

func scanSurveyRows(rows *sql.Rows) ([]*Survey, error) {
	var surveys []*Survey

	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan survey row: %w", err)
		}

		surveys = append(surveys, sv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate survey rows: %w", err)
	}

	return surveys, nil
}
