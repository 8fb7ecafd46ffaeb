package sync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fairlead/surveysync/internal/backend"
)

// AutoSyncDelay is how long the engine waits after regaining connectivity
// before draining the queue. The grace period lets a flapping link settle
// instead of starting a drain that dies on the first request.
const AutoSyncDelay = 2 * time.Second

// Feed is the optional realtime change stream used in watch mode.
// *backend.Client satisfies it.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan backend.ChangeEvent, error)
}

// Engine ties the pieces together: it requeues dirty entities at startup,
// watches connectivity transitions, and triggers queue drains.
type Engine struct {
	store     *Store
	repo      *Repo
	monitor   *Monitor
	processor *Processor
	remote    Remote
	logger    *slog.Logger

	// sleepFunc paces the post-reconnect grace period. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewEngine assembles the sync engine from its parts.
func NewEngine(store *Store, repo *Repo, monitor *Monitor, processor *Processor,
	remote Remote, logger *slog.Logger,
) *Engine {
	return &Engine{
		store:     store,
		repo:      repo,
		monitor:   monitor,
		processor: processor,
		remote:    remote,
		logger:    logger,
		sleepFunc: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RequeueDirty re-enqueues every entity still flagged needs_sync that has
// no pending queue item. Run at startup: it recovers mutations whose queue
// items were dropped after exhausting retries in an earlier session.
func (e *Engine) RequeueDirty(ctx context.Context) (int, error) {
	requeued := 0

	enqueue := func(kind EntityKind, id string, offlineCreated bool, synced *int64) error {
		queued, err := e.store.HasQueuedEntity(ctx, kind, id)
		if err != nil {
			return err
		}

		if queued {
			return nil
		}

		action := ActionUpdate
		if offlineCreated && synced == nil {
			action = ActionCreate
		}

		if _, err := e.store.Enqueue(ctx, kind, id, action); err != nil {
			return err
		}

		requeued++

		return nil
	}

	surveys, err := e.store.ListDirtySurveys(ctx)
	if err != nil {
		return requeued, err
	}

	for _, sv := range surveys {
		if err := enqueue(KindSurvey, sv.ID, sv.OfflineCreated, sv.LastSyncedAt); err != nil {
			return requeued, err
		}
	}

	zones, err := e.store.ListDirtyZones(ctx)
	if err != nil {
		return requeued, err
	}

	for _, z := range zones {
		if err := enqueue(KindZone, z.ID, z.OfflineCreated, z.LastSyncedAt); err != nil {
			return requeued, err
		}
	}

	notes, err := e.store.ListDirtyNotes(ctx)
	if err != nil {
		return requeued, err
	}

	for _, n := range notes {
		if err := enqueue(KindNote, n.ID, n.OfflineCreated, n.LastSyncedAt); err != nil {
			return requeued, err
		}
	}

	media, err := e.store.ListDirtyMedia(ctx)
	if err != nil {
		return requeued, err
	}

	for _, m := range media {
		if err := enqueue(KindMedia, m.ID, m.OfflineCreated, m.LastSyncedAt); err != nil {
			return requeued, err
		}
	}

	checklists, err := e.store.ListDirtyChecklistResponses(ctx)
	if err != nil {
		return requeued, err
	}

	for _, c := range checklists {
		if err := enqueue(KindChecklist, c.ID, c.OfflineCreated, c.LastSyncedAt); err != nil {
			return requeued, err
		}
	}

	utilities, err := e.store.ListDirtyUtilityEntries(ctx)
	if err != nil {
		return requeued, err
	}

	for _, u := range utilities {
		if err := enqueue(KindUtility, u.ID, u.OfflineCreated, u.LastSyncedAt); err != nil {
			return requeued, err
		}
	}

	if requeued > 0 {
		e.logger.Info("requeued dirty entities", slog.Int("count", requeued))
	}

	return requeued, nil
}

// SyncNow drains the queue once. A drain already in progress is not an
// error for callers who just want the queue pushed.
func (e *Engine) SyncNow(ctx context.Context) (*SyncResult, error) {
	result, err := e.processor.Drain(ctx)
	if errors.Is(err, ErrSyncInProgress) {
		e.logger.Debug("drain already in progress")

		return &SyncResult{}, nil
	}

	return result, err
}

// MergedSurveys returns the deduplicated union of the local cache and the
// remote listing. While offline it degrades to the local cache alone.
func (e *Engine) MergedSurveys(ctx context.Context) ([]*Survey, error) {
	local, err := e.store.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}

	if !e.monitor.Online() {
		return MergeSurveys(local, nil), nil
	}

	records, err := e.remote.ListSurveys(ctx)
	if err != nil {
		e.logger.Warn("remote listing unavailable, showing local cache",
			slog.String("error", err.Error()),
		)

		return MergeSurveys(local, nil), nil
	}

	remote := make([]*Survey, 0, len(records))
	for i := range records {
		remote = append(remote, surveyFromRecord(&records[i]))
	}

	return MergeSurveys(local, remote), nil
}

// Watch runs the engine until ctx is canceled: the connectivity probe
// loop, the reconnect-triggered drains, and, when feed is non-nil, the
// realtime change stream. Each reconnect waits AutoSyncDelay and then
// drains if anything is queued.
func (e *Engine) Watch(ctx context.Context, feed Feed) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		e.monitor.Run(ctx)

		return ctx.Err()
	})

	changes := e.monitor.Subscribe()

	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case change := <-changes:
				if !change.Online {
					continue
				}

				if err := e.onReconnect(ctx); err != nil && !errors.Is(err, context.Canceled) {
					e.logger.Error("reconnect drain failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	if feed != nil {
		group.Go(func() error {
			return e.followFeed(ctx, feed)
		})
	}

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// onReconnect waits out the grace period and drains if the queue holds
// anything. A queue that drained while we waited is not an error.
func (e *Engine) onReconnect(ctx context.Context) error {
	if err := e.sleepFunc(ctx, AutoSyncDelay); err != nil {
		return err
	}

	depth, err := e.store.QueueDepth(ctx)
	if err != nil {
		return err
	}

	if depth == 0 {
		return nil
	}

	e.logger.Info("connectivity restored, draining queue", slog.Int("depth", depth))

	_, err = e.SyncNow(ctx)

	return err
}

// feedTables maps realtime feed table names to local entity kinds.
var feedTables = map[string]EntityKind{
	"surveys":                    KindSurvey,
	"survey_zones":               KindZone,
	"survey_notes":               KindNote,
	"survey_media":               KindMedia,
	"survey_checklist_responses": KindChecklist,
	"utility_entries":            KindUtility,
}

// followFeed consumes the realtime change stream: remote deletes are
// applied to the local cache, and every event nudges a drain. The feed is
// advisory; a missed event costs nothing because the next reconnect or
// manual sync pushes the same queue.
func (e *Engine) followFeed(ctx context.Context, feed Feed) error {
	events, err := feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}

			e.logger.Debug("remote change received",
				slog.String("table", event.Table),
				slog.String("action", event.Action),
				slog.String("entity_id", event.EntityID),
			)

			if strings.EqualFold(event.Action, "delete") {
				if kind, ok := feedTables[event.Table]; ok {
					if err := e.store.DeleteEntity(ctx, kind, event.EntityID); err != nil {
						e.logger.Error("applying remote delete",
							slog.String("entity_id", event.EntityID),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			if _, err := e.SyncNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("feed-triggered drain failed", slog.String("error", err.Error()))
			}
		}
	}
}
