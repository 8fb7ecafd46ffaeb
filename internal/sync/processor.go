package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fairlead/surveysync/internal/backend"
)

// Processing limits.
const (
	// DefaultBatchSize is how many queue items one drain pass claims.
	DefaultBatchSize = 50

	// DefaultRetryLimit is how many failed attempts a queue item gets
	// before it is dropped and the failure is surfaced to the user.
	DefaultRetryLimit = 3
)

// ErrSyncInProgress is returned when a drain is requested while another
// one is still running. The queue is drained sequentially; concurrent
// drains would double-apply mutations.
var ErrSyncInProgress = errors.New("sync: processor already running")

// Remote is the backend surface the processor pushes mutations to.
// *backend.Client satisfies it; tests substitute a fake.
type Remote interface {
	UpsertSurvey(ctx context.Context, rec *backend.SurveyRecord) (*backend.SurveyRecord, error)
	DeleteSurvey(ctx context.Context, id string) error
	ListSurveys(ctx context.Context) ([]backend.SurveyRecord, error)
	UpsertZone(ctx context.Context, rec *backend.ZoneRecord) error
	DeleteZone(ctx context.Context, id string) error
	UpsertNote(ctx context.Context, rec *backend.NoteRecord) error
	DeleteNote(ctx context.Context, id string) error
	UpsertMedia(ctx context.Context, rec *backend.MediaRecord) error
	DeleteMedia(ctx context.Context, id string) error
	UpsertChecklistResponse(ctx context.Context, rec *backend.ChecklistRecord) error
	DeleteChecklistResponse(ctx context.Context, id string) error
	UpsertTravelExpense(ctx context.Context, rec *backend.TravelExpenseRecord) error
	DeleteTravelExpenses(ctx context.Context, surveyID string) error
	InsertUtilityEntries(ctx context.Context, recs []backend.UtilityRecord) error
	UploadObject(ctx context.Context, key, contentType string, payload []byte) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Notifier receives user-facing sync outcomes. SyncSucceeded fires once
// per drain that empties the queue; SyncFailed fires once per item dropped
// after exhausting its retries.
type Notifier interface {
	SyncSucceeded(pushed int)
	SyncFailed(kind EntityKind, entityID string, err error)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) SyncSucceeded(int) {}

func (NopNotifier) SyncFailed(EntityKind, string, error) {}

// SyncResult summarizes one drain pass.
type SyncResult struct {
	Pushed  int // mutations applied remotely
	Retried int // transient failures left queued for a later pass
	Dropped int // items removed after exhausting retries
}

// Processor drains the sync queue against the remote backend. Items are
// processed strictly sequentially in queue drain order. At most one drain
// runs at a time.
type Processor struct {
	store    *Store
	remote   Remote
	monitor  *Monitor
	notifier Notifier
	logger   *slog.Logger

	batchSize  int
	retryLimit int

	running atomic.Bool
}

// NewProcessor creates a queue processor. Zero batchSize and retryLimit
// fall back to the defaults; a nil notifier discards notifications.
func NewProcessor(store *Store, remote Remote, monitor *Monitor, notifier Notifier,
	batchSize, retryLimit int, logger *slog.Logger,
) *Processor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if retryLimit <= 0 {
		retryLimit = DefaultRetryLimit
	}

	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &Processor{
		store:      store,
		remote:     remote,
		monitor:    monitor,
		notifier:   notifier,
		logger:     logger,
		batchSize:  batchSize,
		retryLimit: retryLimit,
	}
}

// Drain pushes queued mutations to the backend until the queue is empty,
// connectivity is lost, or no further progress can be made. Returns
// ErrSyncInProgress when a drain is already running.
func (p *Processor) Drain(ctx context.Context) (*SyncResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer p.running.Store(false)

	result := &SyncResult{}
	start := time.Now()

	for {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if !p.monitor.Online() {
			p.logger.Info("pausing drain, backend unreachable")

			return result, nil
		}

		batch, err := p.store.NextBatch(ctx, p.batchSize)
		if err != nil {
			return result, err
		}

		if len(batch) == 0 {
			break
		}

		progressed := false

		for _, item := range batch {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}

			if !p.monitor.Online() {
				return result, nil
			}

			switch p.processItem(ctx, item, result) {
			case itemPushed, itemDropped:
				progressed = true
			case itemRetried:
			}
		}

		// A pass that only bumped retry counters would spin forever; the
		// remaining items wait for the next drain trigger.
		if !progressed {
			break
		}
	}

	depth, err := p.store.QueueDepth(ctx)
	if err != nil {
		return result, err
	}

	if depth == 0 && result.Pushed > 0 {
		p.notifier.SyncSucceeded(result.Pushed)
	}

	p.logger.Info("drain finished",
		slog.Int("pushed", result.Pushed),
		slog.Int("retried", result.Retried),
		slog.Int("dropped", result.Dropped),
		slog.Int("remaining", depth),
		slog.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

type itemOutcome int

const (
	itemPushed itemOutcome = iota
	itemRetried
	itemDropped
)

// processItem applies one queue item and settles its queue row.
func (p *Processor) processItem(ctx context.Context, item *QueueItem, result *SyncResult) itemOutcome {
	err := p.apply(ctx, item)
	if err == nil {
		if item.Action != ActionDelete {
			if markErr := p.store.MarkSynced(ctx, item.Kind, item.EntityID); markErr != nil {
				p.logger.Error("marking entity synced",
					slog.String("entity_id", item.EntityID),
					slog.String("error", markErr.Error()),
				)
			}
		}

		if rmErr := p.store.RemoveQueueItem(ctx, item.ID); rmErr != nil {
			p.logger.Error("removing applied queue item",
				slog.Int64("queue_id", item.ID),
				slog.String("error", rmErr.Error()),
			)
		}

		result.Pushed++

		return itemPushed
	}

	p.logger.Warn("queue item failed",
		slog.Int64("queue_id", item.ID),
		slog.String("kind", string(item.Kind)),
		slog.String("entity_id", item.EntityID),
		slog.Int("retry_count", item.RetryCount),
		slog.String("error", err.Error()),
	)

	exhausted := item.RetryCount+1 >= p.retryLimit

	// Client errors will never succeed on retry.
	if errors.Is(err, backend.ErrBadRequest) || errors.Is(err, backend.ErrUnauthorized) ||
		errors.Is(err, backend.ErrForbidden) {
		exhausted = true
	}

	if !exhausted {
		if bumpErr := p.store.BumpRetry(ctx, item.ID, err.Error()); bumpErr != nil {
			p.logger.Error("bumping queue retry",
				slog.Int64("queue_id", item.ID),
				slog.String("error", bumpErr.Error()),
			)
		}

		result.Retried++

		return itemRetried
	}

	if rmErr := p.store.RemoveQueueItem(ctx, item.ID); rmErr != nil {
		p.logger.Error("removing exhausted queue item",
			slog.Int64("queue_id", item.ID),
			slog.String("error", rmErr.Error()),
		)
	}

	if recErr := p.store.RecordSyncError(ctx, item.Kind, item.EntityID, err.Error()); recErr != nil {
		p.logger.Error("recording sync error",
			slog.String("entity_id", item.EntityID),
			slog.String("error", recErr.Error()),
		)
	}

	p.notifier.SyncFailed(item.Kind, item.EntityID, err)
	result.Dropped++

	return itemDropped
}

// apply pushes one mutation to the backend, dispatching on entity kind.
func (p *Processor) apply(ctx context.Context, item *QueueItem) error {
	switch item.Kind {
	case KindSurvey:
		return p.applySurvey(ctx, item)
	case KindZone:
		return p.applyZone(ctx, item)
	case KindNote:
		return p.applyNote(ctx, item)
	case KindMedia:
		return p.applyMedia(ctx, item)
	case KindChecklist:
		return p.applyChecklist(ctx, item)
	case KindUtility:
		return p.applyUtility(ctx, item)
	default:
		return fmt.Errorf("sync: unknown queue item kind %q", item.Kind)
	}
}

func (p *Processor) applySurvey(ctx context.Context, item *QueueItem) error {
	if item.Action == ActionDelete {
		// Travel expenses hang off the survey with no queue items of
		// their own; they go when the survey goes.
		if err := p.remote.DeleteTravelExpenses(ctx, item.EntityID); err != nil {
			return err
		}

		return p.remote.DeleteSurvey(ctx, item.EntityID)
	}

	sv, err := p.store.GetSurvey(ctx, item.EntityID)
	if err != nil {
		return err
	}

	if sv == nil {
		// Deleted locally after being queued; nothing to push.
		return nil
	}

	rec, err := surveyToRecord(sv)
	if err != nil {
		return err
	}

	if _, err := p.remote.UpsertSurvey(ctx, rec); err != nil {
		return err
	}

	expenses, err := travelExpenseRecords(sv)
	if err != nil {
		return err
	}

	for _, expense := range expenses {
		if err := p.remote.UpsertTravelExpense(ctx, expense); err != nil {
			return err
		}
	}

	return nil
}

func (p *Processor) applyZone(ctx context.Context, item *QueueItem) error {
	if item.Action == ActionDelete {
		return p.remote.DeleteZone(ctx, item.EntityID)
	}

	z, err := p.store.GetZone(ctx, item.EntityID)
	if err != nil {
		return err
	}

	if z == nil {
		return nil
	}

	rec, err := zoneToRecord(z)
	if err != nil {
		return err
	}

	return p.remote.UpsertZone(ctx, rec)
}

func (p *Processor) applyNote(ctx context.Context, item *QueueItem) error {
	if item.Action == ActionDelete {
		return p.remote.DeleteNote(ctx, item.EntityID)
	}

	n, err := p.store.GetNote(ctx, item.EntityID)
	if err != nil {
		return err
	}

	if n == nil {
		return nil
	}

	return p.remote.UpsertNote(ctx, noteToRecord(n))
}

// applyMedia uploads the blob first, then writes the metadata row. The
// metadata row is only written after the object exists, so a half-failed
// upload leaves no dangling reference. Deletes reverse the order: the
// blob goes first, keyed by the object path the repo stashed on the
// queue item, then the metadata row.
func (p *Processor) applyMedia(ctx context.Context, item *QueueItem) error {
	if item.Action == ActionDelete {
		if item.Payload != "" {
			if err := p.remote.DeleteObject(ctx, item.Payload); err != nil {
				return err
			}
		}

		return p.remote.DeleteMedia(ctx, item.EntityID)
	}

	m, err := p.store.GetMedia(ctx, item.EntityID)
	if err != nil {
		return err
	}

	if m == nil {
		return nil
	}

	if m.StoragePath == "" {
		key := backend.ObjectPath(m.SurveyID, m.ZoneID, m.FileName, time.Now())

		if _, err := p.remote.UploadObject(ctx, key, m.FileType, m.Payload); err != nil {
			return err
		}

		m.StoragePath = key
		m.Payload = nil // uploaded; the local cache copy is no longer needed

		if err := p.store.PutMedia(ctx, m); err != nil {
			return err
		}
	}

	return p.remote.UpsertMedia(ctx, mediaToRecord(m))
}

func (p *Processor) applyChecklist(ctx context.Context, item *QueueItem) error {
	if item.Action == ActionDelete {
		return p.remote.DeleteChecklistResponse(ctx, item.EntityID)
	}

	c, err := p.store.GetChecklistResponse(ctx, item.EntityID)
	if err != nil {
		return err
	}

	if c == nil {
		return nil
	}

	return p.remote.UpsertChecklistResponse(ctx, checklistToRecord(c))
}

func (p *Processor) applyUtility(ctx context.Context, item *QueueItem) error {
	if item.Action == ActionDelete {
		return nil // utility entries are never deleted remotely
	}

	u, err := p.store.GetUtilityEntry(ctx, item.EntityID)
	if err != nil {
		return err
	}

	if u == nil {
		return nil
	}

	return p.remote.InsertUtilityEntries(ctx, []backend.UtilityRecord{*utilityToRecord(u)})
}
