package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, KindSurvey, "s1", ActionCreate)
	require.NoError(t, err)
	assert.Positive(t, id)

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestEnqueueWithPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.EnqueueWithPayload(ctx, KindMedia, "m1", ActionDelete, "s1/general/a.jpg")
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindMedia, "m2", ActionDelete)
	require.NoError(t, err)

	batch, err := store.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "s1/general/a.jpg", batch[0].Payload)
	assert.Empty(t, batch[1].Payload)
}

func TestNextBatchOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Enqueue low-priority items first to prove priority beats insertion
	// order across kinds.
	_, err := store.Enqueue(ctx, KindUtility, "u1", ActionCreate)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindMedia, "m1", ActionCreate)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindNote, "n1", ActionCreate)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindChecklist, "c1", ActionCreate)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindZone, "z1", ActionCreate)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindSurvey, "s1", ActionCreate)
	require.NoError(t, err)

	batch, err := store.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 6)

	kinds := make([]EntityKind, 0, len(batch))
	for _, item := range batch {
		kinds = append(kinds, item.Kind)
	}

	// Surveys drain first, then zones, then the equal-priority note and
	// checklist in insertion order, then media, then utilities.
	assert.Equal(t, []EntityKind{
		KindSurvey, KindZone, KindNote, KindChecklist, KindMedia, KindUtility,
	}, kinds)
}

func TestNextBatchInsertionOrderWithinPriority(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Enqueue(ctx, KindSurvey, id, ActionUpdate)
		require.NoError(t, err)
	}

	batch, err := store.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "a", batch[0].EntityID)
	assert.Equal(t, "b", batch[1].EntityID)
	assert.Equal(t, "c", batch[2].EntityID)
}

func TestNextBatchLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for range 5 {
		_, err := store.Enqueue(ctx, KindSurvey, "s", ActionUpdate)
		require.NoError(t, err)
	}

	batch, err := store.NextBatch(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestRemoveQueueItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, KindNote, "n1", ActionDelete)
	require.NoError(t, err)

	require.NoError(t, store.RemoveQueueItem(ctx, id))

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestBumpRetry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, KindZone, "z1", ActionUpdate)
	require.NoError(t, err)

	require.NoError(t, store.BumpRetry(ctx, id, "connection reset"))
	require.NoError(t, store.BumpRetry(ctx, id, "timeout"))

	batch, err := store.NextBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 2, batch[0].RetryCount)
	assert.Equal(t, "timeout", batch[0].LastError, "last error reflects the latest attempt")
}

func TestHasQueuedEntity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, KindSurvey, "s1", ActionUpdate)
	require.NoError(t, err)

	queued, err := store.HasQueuedEntity(ctx, KindSurvey, "s1")
	require.NoError(t, err)
	assert.True(t, queued)

	queued, err = store.HasQueuedEntity(ctx, KindSurvey, "other")
	require.NoError(t, err)
	assert.False(t, queued)

	queued, err = store.HasQueuedEntity(ctx, KindZone, "s1")
	require.NoError(t, err)
	assert.False(t, queued, "kind is part of the identity")
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/queue.db"
	ctx := context.Background()

	store, err := NewStore(path, testLogger(t))
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, KindSurvey, "s1", ActionCreate)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, reopened.Close())
	})

	depth, err := reopened.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "queue is durable across restarts")
}
