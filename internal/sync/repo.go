package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrOffline is returned by operations that refuse to run without backend
// connectivity. Check with errors.Is.
var ErrOffline = errors.New("sync: backend unreachable")

// Repo mediates all application writes. Every save lands in the local
// store first and a matching mutation is appended to the sync queue; the
// remote side catches up when the processor drains. Only destructive
// survey-level operations require connectivity up front.
type Repo struct {
	store   *Store
	monitor *Monitor
	logger  *slog.Logger
}

// NewRepo creates a repository over the given store and monitor.
func NewRepo(store *Store, monitor *Monitor, logger *slog.Logger) *Repo {
	return &Repo{store: store, monitor: monitor, logger: logger}
}

// stamp fills in the sync bookkeeping for a locally written record. New
// records created without connectivity are flagged offline_created so the
// deduplication heuristic can later match them against remote twins.
func (r *Repo) stamp(meta *SyncMeta, isNew bool) {
	meta.NeedsSync = true
	meta.LastSyncError = ""

	if isNew {
		meta.Version = 1
		meta.OfflineCreated = !r.monitor.Online()

		return
	}

	meta.Version++
}

// saveAction maps new/existing to the queue action to record.
func saveAction(isNew bool) QueueAction {
	if isNew {
		return ActionCreate
	}

	return ActionUpdate
}

// SaveSurvey validates, repairs, and persists a survey locally, then
// queues it for remote sync. An empty ID means create; the repo assigns a
// UUID which doubles as the remote idempotency key.
func (r *Repo) SaveSurvey(ctx context.Context, sv *Survey) error {
	r.store.RepairSurvey(sv)

	if err := ValidateSurvey(sv); err != nil {
		return err
	}

	isNew := sv.ID == ""
	now := NowNano()

	if isNew {
		sv.ID = uuid.NewString()
		sv.CreatedAt = now
	} else {
		existing, err := r.store.GetSurvey(ctx, sv.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			isNew = true

			if sv.CreatedAt == 0 {
				sv.CreatedAt = now
			}
		} else {
			sv.SyncMeta = existing.SyncMeta
		}
	}

	sv.UpdatedAt = now
	r.stamp(&sv.SyncMeta, isNew)

	if err := r.store.PutSurvey(ctx, sv); err != nil {
		return err
	}

	if _, err := r.store.Enqueue(ctx, KindSurvey, sv.ID, saveAction(isNew)); err != nil {
		return err
	}

	r.logger.Info("survey saved",
		slog.String("id", sv.ID),
		slog.String("ship", sv.ShipName),
		slog.Bool("created", isNew),
		slog.Bool("offline", !r.monitor.Online()),
	)

	return nil
}

// DeleteSurvey removes a survey and all of its child records. Deleting a
// survey is destructive across devices, so it is refused while offline
// rather than queued blindly. The backend does not cascade deletes, so
// every child row gets its own queue item; child ids and media object
// keys are captured before the local cascade wipes them.
func (r *Repo) DeleteSurvey(ctx context.Context, id string) error {
	if !r.monitor.Online() {
		return fmt.Errorf("sync: delete survey %s: deleting a survey propagates to all devices and requires connectivity: %w", id, ErrOffline)
	}

	zones, err := r.store.ListZones(ctx, id)
	if err != nil {
		return err
	}

	notes, err := r.store.ListNotes(ctx, id)
	if err != nil {
		return err
	}

	media, err := r.store.ListMedia(ctx, id)
	if err != nil {
		return err
	}

	checklists, err := r.store.ListChecklistResponses(ctx, id)
	if err != nil {
		return err
	}

	err = r.store.Transaction(ctx, func(tx *sql.Tx) error {
		children := []string{"checklist_responses", "media", "notes", "zones"}

		for _, table := range children {
			//nolint:gosec // table names come from the fixed list above
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE survey_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s for survey %s: %w", table, id, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete survey %s: %w", id, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("sync: delete survey: %w", err)
	}

	for _, z := range zones {
		if _, err := r.store.Enqueue(ctx, KindZone, z.ID, ActionDelete); err != nil {
			return err
		}
	}

	for _, n := range notes {
		if _, err := r.store.Enqueue(ctx, KindNote, n.ID, ActionDelete); err != nil {
			return err
		}
	}

	for _, m := range media {
		if _, err := r.store.EnqueueWithPayload(ctx, KindMedia, m.ID, ActionDelete, m.StoragePath); err != nil {
			return err
		}
	}

	for _, c := range checklists {
		if _, err := r.store.Enqueue(ctx, KindChecklist, c.ID, ActionDelete); err != nil {
			return err
		}
	}

	if _, err := r.store.Enqueue(ctx, KindSurvey, id, ActionDelete); err != nil {
		return err
	}

	r.logger.Info("survey deleted",
		slog.String("id", id),
		slog.Int("children", len(zones)+len(notes)+len(media)+len(checklists)),
	)

	return nil
}

// SaveZone persists a zone locally and queues it for remote sync.
func (r *Repo) SaveZone(ctx context.Context, z *Zone) error {
	if err := ValidateZone(z); err != nil {
		return err
	}

	isNew := z.ID == ""
	now := NowNano()

	if isNew {
		z.ID = uuid.NewString()
		z.CreatedAt = now
	} else {
		existing, err := r.store.GetZone(ctx, z.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			isNew = true

			if z.CreatedAt == 0 {
				z.CreatedAt = now
			}
		} else {
			z.SyncMeta = existing.SyncMeta
		}
	}

	z.UpdatedAt = now
	r.stamp(&z.SyncMeta, isNew)

	if err := r.store.PutZone(ctx, z); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindZone, z.ID, saveAction(isNew))

	return err
}

// DeleteZone removes a zone locally and queues the remote delete. Child
// records of the survey are untouched; notes and media referencing the
// zone keep their zone id for history.
func (r *Repo) DeleteZone(ctx context.Context, id string) error {
	if err := r.store.DeleteZone(ctx, id); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindZone, id, ActionDelete)

	return err
}

// SaveNote persists a note locally and queues it for remote sync.
func (r *Repo) SaveNote(ctx context.Context, n *Note) error {
	if err := ValidateNote(n); err != nil {
		return err
	}

	isNew := n.ID == ""
	now := NowNano()

	if isNew {
		n.ID = uuid.NewString()
		n.CreatedAt = now
	} else {
		existing, err := r.store.GetNote(ctx, n.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			isNew = true

			if n.CreatedAt == 0 {
				n.CreatedAt = now
			}
		} else {
			n.SyncMeta = existing.SyncMeta
		}
	}

	n.UpdatedAt = now
	r.stamp(&n.SyncMeta, isNew)

	if err := r.store.PutNote(ctx, n); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindNote, n.ID, saveAction(isNew))

	return err
}

// DeleteNote removes a note locally and queues the remote delete.
func (r *Repo) DeleteNote(ctx context.Context, id string) error {
	if err := r.store.DeleteNote(ctx, id); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindNote, id, ActionDelete)

	return err
}

// SaveMedia persists media locally, payload included, and queues the
// upload. The payload stays cached until the processor confirms the remote
// copy.
func (r *Repo) SaveMedia(ctx context.Context, m *Media) error {
	if m.SurveyID == "" {
		return &ValidationError{Entity: "media", Rules: []string{"survey id must not be empty"}}
	}

	if len(m.Payload) == 0 && m.StoragePath == "" {
		return &ValidationError{Entity: "media", Rules: []string{"media must carry a payload or an uploaded storage path"}}
	}

	isNew := m.ID == ""
	now := NowNano()

	if isNew {
		m.ID = uuid.NewString()
		m.CreatedAt = now
	} else {
		existing, err := r.store.GetMedia(ctx, m.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			isNew = true

			if m.CreatedAt == 0 {
				m.CreatedAt = now
			}
		} else {
			m.SyncMeta = existing.SyncMeta
		}
	}

	m.UpdatedAt = now
	r.stamp(&m.SyncMeta, isNew)

	if err := r.store.PutMedia(ctx, m); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindMedia, m.ID, saveAction(isNew))

	return err
}

// DeleteMedia removes a media record locally and queues the remote delete.
// The storage object key rides on the queue item so the processor can
// still remove the uploaded blob once the local row is gone.
func (r *Repo) DeleteMedia(ctx context.Context, id string) error {
	m, err := r.store.GetMedia(ctx, id)
	if err != nil {
		return err
	}

	objectKey := ""
	if m != nil {
		objectKey = m.StoragePath
	}

	if err := r.store.DeleteMedia(ctx, id); err != nil {
		return err
	}

	_, err = r.store.EnqueueWithPayload(ctx, KindMedia, id, ActionDelete, objectKey)

	return err
}

// SaveChecklistResponse persists a checklist answer locally and queues it
// for remote sync.
func (r *Repo) SaveChecklistResponse(ctx context.Context, c *ChecklistResponse) error {
	if c.SurveyID == "" || c.QuestionID == "" {
		rules := []string{}
		if c.SurveyID == "" {
			rules = append(rules, "survey id must not be empty")
		}

		if c.QuestionID == "" {
			rules = append(rules, "question id must not be empty")
		}

		return &ValidationError{Entity: "checklist response", Rules: rules}
	}

	isNew := c.ID == ""
	now := NowNano()

	if isNew {
		c.ID = uuid.NewString()
		c.CreatedAt = now
	} else {
		existing, err := r.store.GetChecklistResponse(ctx, c.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			isNew = true

			if c.CreatedAt == 0 {
				c.CreatedAt = now
			}
		} else {
			c.SyncMeta = existing.SyncMeta
		}
	}

	c.UpdatedAt = now
	r.stamp(&c.SyncMeta, isNew)

	if err := r.store.PutChecklistResponse(ctx, c); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindChecklist, c.ID, saveAction(isNew))

	return err
}

// SaveUtilityEntry persists a utility reading locally and queues it for
// remote sync.
func (r *Repo) SaveUtilityEntry(ctx context.Context, u *UtilityEntry) error {
	if err := ValidateUtilityEntry(u); err != nil {
		return err
	}

	isNew := u.ID == ""
	if isNew {
		u.ID = uuid.NewString()
		u.CreatedAt = NowNano()
	}

	r.stamp(&u.SyncMeta, isNew)

	if err := r.store.PutUtilityEntry(ctx, u); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindUtility, u.ID, saveAction(isNew))

	return err
}

// DeleteUtilityEntry removes a utility reading locally. Utility rows are
// insert-only on the backend, so the queued delete settles without a
// remote call.
func (r *Repo) DeleteUtilityEntry(ctx context.Context, id string) error {
	if err := r.store.DeleteUtilityEntry(ctx, id); err != nil {
		return err
	}

	_, err := r.store.Enqueue(ctx, KindUtility, id, ActionDelete)

	return err
}
