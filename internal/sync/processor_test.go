package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlead/surveysync/internal/backend"
)

// fakeRemote records pushed mutations and fails on demand.
type fakeRemote struct {
	surveys    []string
	zones      []string
	notes      []string
	media      []string
	checklists []string
	expenses   []string
	utilities  [][]backend.UtilityRecord
	uploads    []string
	deletes    []string

	failWith error // when set, every call fails
}

func (f *fakeRemote) UpsertSurvey(_ context.Context, rec *backend.SurveyRecord) (*backend.SurveyRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}

	f.surveys = append(f.surveys, rec.ID)

	return rec, nil
}

func (f *fakeRemote) DeleteSurvey(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.deletes = append(f.deletes, "survey/"+id)

	return nil
}

func (f *fakeRemote) ListSurveys(context.Context) ([]backend.SurveyRecord, error) {
	return nil, f.failWith
}

func (f *fakeRemote) UpsertZone(_ context.Context, rec *backend.ZoneRecord) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.zones = append(f.zones, rec.ID)

	return nil
}

func (f *fakeRemote) DeleteZone(_ context.Context, id string) error {
	f.deletes = append(f.deletes, "zone/"+id)

	return f.failWith
}

func (f *fakeRemote) UpsertNote(_ context.Context, rec *backend.NoteRecord) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.notes = append(f.notes, rec.ID)

	return nil
}

func (f *fakeRemote) DeleteNote(_ context.Context, id string) error {
	f.deletes = append(f.deletes, "note/"+id)

	return f.failWith
}

func (f *fakeRemote) UpsertMedia(_ context.Context, rec *backend.MediaRecord) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.media = append(f.media, rec.ID)

	return nil
}

func (f *fakeRemote) DeleteMedia(_ context.Context, id string) error {
	f.deletes = append(f.deletes, "media/"+id)

	return f.failWith
}

func (f *fakeRemote) UpsertChecklistResponse(_ context.Context, rec *backend.ChecklistRecord) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.checklists = append(f.checklists, rec.ID)

	return nil
}

func (f *fakeRemote) DeleteChecklistResponse(_ context.Context, id string) error {
	f.deletes = append(f.deletes, "checklist/"+id)

	return f.failWith
}

func (f *fakeRemote) UpsertTravelExpense(_ context.Context, rec *backend.TravelExpenseRecord) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.expenses = append(f.expenses, rec.Kind)

	return nil
}

func (f *fakeRemote) DeleteTravelExpenses(_ context.Context, surveyID string) error {
	f.deletes = append(f.deletes, "expenses/"+surveyID)

	return f.failWith
}

func (f *fakeRemote) InsertUtilityEntries(_ context.Context, recs []backend.UtilityRecord) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.utilities = append(f.utilities, recs)

	return nil
}

func (f *fakeRemote) UploadObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}

	f.uploads = append(f.uploads, key)

	return key, nil
}

func (f *fakeRemote) DeleteObject(_ context.Context, key string) error {
	f.deletes = append(f.deletes, "object/"+key)

	return f.failWith
}

// recordingNotifier captures notifications.
type recordingNotifier struct {
	successes []int
	failures  []string
}

func (n *recordingNotifier) SyncSucceeded(pushed int) {
	n.successes = append(n.successes, pushed)
}

func (n *recordingNotifier) SyncFailed(kind EntityKind, entityID string, _ error) {
	n.failures = append(n.failures, string(kind)+"/"+entityID)
}

func newTestProcessor(t *testing.T, remote Remote, notifier Notifier) (*Processor, *Store) {
	t.Helper()

	store := newTestStore(t)
	monitor := newTestMonitor(t, true)
	proc := NewProcessor(store, remote, monitor, notifier, 0, 0, testLogger(t))

	return proc, store
}

func TestDrainPushesInPriorityOrder(t *testing.T) {
	remote := &fakeRemote{}
	notifier := &recordingNotifier{}
	proc, store := newTestProcessor(t, remote, notifier)
	ctx := context.Background()

	note := &Note{ID: "n1", SurveyID: "s1", Text: "x", CreatedAt: NowNano()}
	note.NeedsSync = true
	require.NoError(t, store.PutNote(ctx, note))
	require.NoError(t, store.PutSurvey(ctx, makeTestSurvey("s1")))

	_, err := store.Enqueue(ctx, KindNote, "n1", ActionCreate)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindSurvey, "s1", ActionCreate)
	require.NoError(t, err)

	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pushed)

	// Survey drained first despite being enqueued second.
	require.Len(t, remote.surveys, 1)
	require.Len(t, remote.notes, 1)

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	t.Run("entity marked synced", func(t *testing.T) {
		sv, err := store.GetSurvey(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, sv.NeedsSync)
		require.NotNil(t, sv.LastSyncedAt)
	})

	t.Run("one success notification", func(t *testing.T) {
		assert.Equal(t, []int{2}, notifier.successes)
		assert.Empty(t, notifier.failures)
	})
}

func TestDrainRetriesThenDrops(t *testing.T) {
	remote := &fakeRemote{failWith: errors.New("backend down")}
	notifier := &recordingNotifier{}
	proc, store := newTestProcessor(t, remote, notifier)
	ctx := context.Background()

	sv := makeTestSurvey("s1")
	sv.NeedsSync = true
	require.NoError(t, store.PutSurvey(ctx, sv))
	_, err := store.Enqueue(ctx, KindSurvey, "s1", ActionCreate)
	require.NoError(t, err)

	// First drain: one failed attempt, item stays queued.
	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retried)

	// Second drain: second failed attempt.
	result, err = proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retried)

	// Third drain: retry limit reached, item dropped.
	result, err = proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dropped)

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth, "exhausted item removed from queue")

	t.Run("one failure notification", func(t *testing.T) {
		assert.Equal(t, []string{"survey/s1"}, notifier.failures)
		assert.Empty(t, notifier.successes)
	})

	t.Run("error recorded, dirty flag kept", func(t *testing.T) {
		got, err := store.GetSurvey(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, got.NeedsSync)
		assert.Contains(t, got.LastSyncError, "backend down")
	})
}

func TestDrainDropsClientErrorsImmediately(t *testing.T) {
	remote := &fakeRemote{failWith: &backend.Error{StatusCode: 400, Err: backend.ErrBadRequest}}
	notifier := &recordingNotifier{}
	proc, store := newTestProcessor(t, remote, notifier)
	ctx := context.Background()

	require.NoError(t, store.PutSurvey(ctx, makeTestSurvey("s1")))
	_, err := store.Enqueue(ctx, KindSurvey, "s1", ActionUpdate)
	require.NoError(t, err)

	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dropped)
	assert.Len(t, notifier.failures, 1)
}

func TestDrainSingleFlight(t *testing.T) {
	proc, _ := newTestProcessor(t, &fakeRemote{}, nil)

	proc.running.Store(true)

	_, err := proc.Drain(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestDrainPausesOffline(t *testing.T) {
	remote := &fakeRemote{}
	store := newTestStore(t)
	monitor := newTestMonitor(t, false)
	proc := NewProcessor(store, remote, monitor, nil, 0, 0, testLogger(t))
	ctx := context.Background()

	_, err := store.Enqueue(ctx, KindSurvey, "s1", ActionUpdate)
	require.NoError(t, err)

	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Pushed)

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "queue untouched while offline")
}

func TestDrainStaleItemIsRemoved(t *testing.T) {
	remote := &fakeRemote{}
	proc, store := newTestProcessor(t, remote, nil)
	ctx := context.Background()

	// Queue references an entity that no longer exists locally.
	_, err := store.Enqueue(ctx, KindNote, "gone", ActionUpdate)
	require.NoError(t, err)

	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
	assert.Empty(t, remote.notes, "nothing pushed for a missing entity")

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestDrainMediaUpload(t *testing.T) {
	remote := &fakeRemote{}
	proc, store := newTestProcessor(t, remote, nil)
	ctx := context.Background()

	m := &Media{
		ID:        "m1",
		SurveyID:  "survey-1",
		ZoneID:    "zone-1",
		FileName:  "crack.jpg",
		FileType:  "image/jpeg",
		Payload:   []byte{1, 2, 3},
		CreatedAt: NowNano(),
	}
	m.NeedsSync = true
	require.NoError(t, store.PutMedia(ctx, m))
	_, err := store.Enqueue(ctx, KindMedia, "m1", ActionCreate)
	require.NoError(t, err)

	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)

	require.Len(t, remote.uploads, 1)
	assert.Contains(t, remote.uploads[0], "survey-1/zone-1/")
	require.Len(t, remote.media, 1)

	t.Run("payload cleared after upload", func(t *testing.T) {
		got, err := store.GetMedia(ctx, "m1")
		require.NoError(t, err)
		assert.Empty(t, got.Payload)
		assert.Equal(t, remote.uploads[0], got.StoragePath)
	})
}

func TestDrainMediaDeleteRemovesBlob(t *testing.T) {
	remote := &fakeRemote{}
	proc, store := newTestProcessor(t, remote, nil)
	repo := NewRepo(store, newTestMonitor(t, true), testLogger(t))
	ctx := context.Background()

	m := &Media{SurveyID: "s1", FileName: "crack.jpg", FileType: "image/jpeg", Payload: []byte{1, 2, 3}}
	require.NoError(t, repo.SaveMedia(ctx, m))

	_, err := proc.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, remote.uploads, 1)

	require.NoError(t, repo.DeleteMedia(ctx, m.ID))

	result, err := proc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)

	// The blob goes first, then the metadata row.
	assert.Equal(t, []string{"object/" + remote.uploads[0], "media/" + m.ID}, remote.deletes)
}

func TestDrainMediaDeleteWithoutUploadSkipsBlob(t *testing.T) {
	remote := &fakeRemote{}
	proc, store := newTestProcessor(t, remote, nil)
	repo := NewRepo(store, newTestMonitor(t, true), testLogger(t))
	ctx := context.Background()

	m := &Media{SurveyID: "s1", FileName: "never-synced.jpg", Payload: []byte{1}}
	require.NoError(t, repo.SaveMedia(ctx, m))
	require.NoError(t, repo.DeleteMedia(ctx, m.ID))

	_, err := proc.Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"media/" + m.ID}, remote.deletes, "no object delete for a never-uploaded blob")
}

func TestDrainSurveyDeleteRemovesTravelExpenses(t *testing.T) {
	remote := &fakeRemote{}
	proc, store := newTestProcessor(t, remote, nil)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, KindSurvey, "s1", ActionDelete)
	require.NoError(t, err)

	_, err = proc.Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"expenses/s1", "survey/s1"}, remote.deletes)
}

func TestDrainSurveyPushesTravelExpenses(t *testing.T) {
	remote := &fakeRemote{}
	proc, store := newTestProcessor(t, remote, nil)
	ctx := context.Background()

	sv := makeTestSurvey("s1")
	sv.FlightDetails = map[string]any{"airline": "SAS"}
	sv.HotelDetails = map[string]any{"name": "Dockside Inn"}
	require.NoError(t, store.PutSurvey(ctx, sv))
	_, err := store.Enqueue(ctx, KindSurvey, "s1", ActionUpdate)
	require.NoError(t, err)

	_, err = proc.Drain(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"flight", "hotel"}, remote.expenses)
}
