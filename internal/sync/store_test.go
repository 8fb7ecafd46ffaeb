package sync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a logger that discards everything. Tests that care
// about log output do not exist in this package.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore creates an in-memory Store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(":memory:", testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

// makeTestSurvey creates a minimal valid survey with required fields set.
func makeTestSurvey(id string) *Survey {
	now := NowNano()

	return &Survey{
		ID:         id,
		ClientName: "Nordic Shipping AS",
		ShipName:   "MV Aurora",
		SurveyDate: "2026-03-14",
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("opens in-memory database", func(t *testing.T) {
		store := newTestStore(t)
		assert.NotNil(t, store.db)
	})

	t.Run("all entity tables exist", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		for _, table := range entityTables {
			var count int
			err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
			require.NoError(t, err, "table %s", table)
			assert.Zero(t, count)
		}
	})
}

func TestGetSurvey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		sv, err := store.GetSurvey(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, sv)
	})

	t.Run("found after upsert", func(t *testing.T) {
		sv := makeTestSurvey("s1")
		sv.ClientContacts = []Contact{{Name: "Kari Nordmann", Email: "kari@example.com"}}
		sv.CustomFields = map[string]any{"imo": "9876543"}
		sv.NeedsSync = true
		require.NoError(t, store.PutSurvey(ctx, sv))

		got, err := store.GetSurvey(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "MV Aurora", got.ShipName)
		assert.Equal(t, StatusDraft, got.Status)
		assert.True(t, got.NeedsSync)
		require.Len(t, got.ClientContacts, 1)
		assert.Equal(t, "Kari Nordmann", got.ClientContacts[0].Name)
		assert.Equal(t, "9876543", got.CustomFields["imo"])
	})
}

func TestPutSurvey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("insert then update keeps id", func(t *testing.T) {
		sv := makeTestSurvey("s1")
		require.NoError(t, store.PutSurvey(ctx, sv))

		sv.Status = StatusInProgress
		sv.Location = "Bergen"
		require.NoError(t, store.PutSurvey(ctx, sv))

		got, err := store.GetSurvey(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, got.Status)
		assert.Equal(t, "Bergen", got.Location)

		all, err := store.ListSurveys(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestListSurveys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := makeTestSurvey("old")
	older.CreatedAt = 100
	newer := makeTestSurvey("new")
	newer.CreatedAt = 200

	require.NoError(t, store.PutSurvey(ctx, older))
	require.NoError(t, store.PutSurvey(ctx, newer))

	all, err := store.ListSurveys(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].ID, "newest first")
	assert.Equal(t, "old", all[1].ID)
}

func TestListDirtySurveys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clean := makeTestSurvey("clean")
	dirty := makeTestSurvey("dirty")
	dirty.NeedsSync = true

	require.NoError(t, store.PutSurvey(ctx, clean))
	require.NoError(t, store.PutSurvey(ctx, dirty))

	got, err := store.ListDirtySurveys(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dirty", got[0].ID)
}

func TestMarkSynced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sv := makeTestSurvey("s1")
	sv.NeedsSync = true
	sv.LastSyncError = "previous failure"
	require.NoError(t, store.PutSurvey(ctx, sv))

	require.NoError(t, store.MarkSynced(ctx, KindSurvey, "s1"))

	got, err := store.GetSurvey(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.NeedsSync)
	assert.Empty(t, got.LastSyncError)
	require.NotNil(t, got.LastSyncedAt)
	assert.Positive(t, *got.LastSyncedAt)

	t.Run("unknown kind is an error", func(t *testing.T) {
		err := store.MarkSynced(ctx, EntityKind("bogus"), "s1")
		assert.Error(t, err)
	})
}

func TestRecordSyncError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sv := makeTestSurvey("s1")
	sv.NeedsSync = true
	require.NoError(t, store.PutSurvey(ctx, sv))

	require.NoError(t, store.RecordSyncError(ctx, KindSurvey, "s1", "server said no"))

	got, err := store.GetSurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "server said no", got.LastSyncError)
	assert.True(t, got.NeedsSync, "dirty flag must survive a recorded error")
}

func TestZoneRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	z := &Zone{
		ID:         "z1",
		SurveyID:   "s1",
		Name:       "Engine Room",
		TypeTags:   []ZoneType{ZoneEngineRoom, ZoneTechnical},
		DeckNumber: "3",
		CreatedAt:  NowNano(),
	}
	require.NoError(t, store.PutZone(ctx, z))

	got, err := store.GetZone(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, "Engine Room", got.Name)
	assert.Equal(t, []ZoneType{ZoneEngineRoom, ZoneTechnical}, got.TypeTags)

	zones, err := store.ListZones(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, zones, 1)
}

func TestMediaPayloadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := &Media{
		ID:        "m1",
		SurveyID:  "s1",
		FileName:  "hull.jpg",
		FileType:  "image/jpeg",
		Payload:   []byte{0xff, 0xd8, 0xff},
		CreatedAt: NowNano(),
	}
	m.FileSize = int64(len(m.Payload))
	require.NoError(t, store.PutMedia(ctx, m))

	got, err := store.GetMedia(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, got.Payload)
	assert.Equal(t, int64(3), got.FileSize)
}

func TestUtilityEntryOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &UtilityEntry{ID: "u1", ReadingDate: "2026-01-01", UtilityType: "electricity", Supplier: "A", Amount: 10, CreatedAt: 1}
	second := &UtilityEntry{ID: "u2", ReadingDate: "2026-02-01", UtilityType: "water", Supplier: "B", Amount: 20, CreatedAt: 2}

	require.NoError(t, store.PutUtilityEntry(ctx, first))
	require.NoError(t, store.PutUtilityEntry(ctx, second))

	entries, err := store.ListUtilityEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u2", entries[0].ID, "newest reading first")
}

func TestDeleteEntity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutSurvey(ctx, makeTestSurvey("s1")))
	require.NoError(t, store.DeleteEntity(ctx, KindSurvey, "s1"))

	got, err := store.GetSurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
