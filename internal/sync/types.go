// Package sync implements the offline-first synchronization core for
// surveysync: the local durable store, per-entity repositories, the online
// status monitor, the durable sync queue and its processor, survey
// deduplication, and storage lifecycle management.
package sync

import (
	"time"
)

// EntityKind tags a sync queue item with the entity table it refers to.
type EntityKind string

// Entity kinds as stored in the sync_queue.kind column.
const (
	KindSurvey    EntityKind = "survey"
	KindZone      EntityKind = "zone"
	KindNote      EntityKind = "note"
	KindMedia     EntityKind = "media"
	KindChecklist EntityKind = "checklist"
	KindUtility   EntityKind = "utility"
)

// QueueAction is the remote mutation a queue item carries.
type QueueAction string

// Queue actions as stored in the sync_queue.action column.
const (
	ActionCreate QueueAction = "create"
	ActionUpdate QueueAction = "update"
	ActionDelete QueueAction = "delete"
)

// SurveyStatus is the survey lifecycle state.
type SurveyStatus string

// Survey statuses as stored in the surveys.status column.
const (
	StatusDraft      SurveyStatus = "draft"
	StatusInProgress SurveyStatus = "in-progress"
	StatusCompleted  SurveyStatus = "completed"
)

// ValidStatus reports whether s is one of the enumerated survey statuses.
func ValidStatus(s SurveyStatus) bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Answer is a checklist response value.
type Answer string

// Checklist answers as stored in the checklist_responses.response column.
const (
	AnswerYes     Answer = "yes"
	AnswerNo      Answer = "no"
	AnswerNA      Answer = "na"
	AnswerSkipped Answer = "skipped"
)

// ZoneType is one of the closed set of zone classification tags.
type ZoneType string

// Zone type tags. Stored as a JSON array in the zones.type_tags column.
const (
	ZoneCabin      ZoneType = "cabin"
	ZoneRestaurant ZoneType = "restaurant"
	ZoneTechnical  ZoneType = "technical"
	ZoneDeck       ZoneType = "deck"
	ZoneGalley     ZoneType = "galley"
	ZoneBridge     ZoneType = "bridge"
	ZoneCargoHold  ZoneType = "cargo_hold"
	ZoneEngineRoom ZoneType = "engine_room"
)

// SyncMeta is the per-record synchronization bookkeeping embedded in every
// locally persisted entity. Version is monotonically non-decreasing and
// informational only — it is never compared on write (last write wins).
type SyncMeta struct {
	NeedsSync      bool
	OfflineCreated bool
	Version        int64
	LastSyncedAt   *int64 // Unix nanoseconds; nil until first confirmed sync
	LastSyncError  string // recorded on retry exhaustion, cleared on success
}

// Contact is a client-side contact person on a survey.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Survey is the root entity: one vessel inspection engagement.
type Survey struct {
	ID             string
	ClientName     string
	ClientCountry  string
	ClientContacts []Contact
	ShipName       string
	Location       string
	SurveyDate     string // ISO date (2006-01-02)
	DurationDays   int
	Scope          string
	Status         SurveyStatus
	CustomFields   map[string]any
	FlightDetails  map[string]any // travel sub-object, persisted to travel_expenses
	HotelDetails   map[string]any

	CreatedAt int64 // Unix nanoseconds
	UpdatedAt int64

	SyncMeta
}

// Zone is an inspected area of the vessel, owned by a Survey.
type Zone struct {
	ID         string
	SurveyID   string
	Name       string
	TypeTags   []ZoneType
	DeckNumber string
	Section    string // ship section/side (port, starboard, ...)
	FrameRange string

	CreatedAt int64
	UpdatedAt int64

	SyncMeta
}

// Note is free-form inspection text attached to a zone within a survey.
type Note struct {
	ID       string
	SurveyID string
	ZoneID   string
	Text     string

	CreatedAt int64
	UpdatedAt int64

	SyncMeta
}

// Media is a photo or document captured for a survey, optionally scoped to
// a zone. Payload holds the raw bytes only while the file is cached locally
// awaiting upload; StoragePath is the remote object key once uploaded.
type Media struct {
	ID            string
	SurveyID      string
	ZoneID        string // empty means survey-level ("general") media
	FileName      string
	FileType      string
	FileSize      int64
	StoragePath   string
	ThumbnailPath string
	Payload       []byte

	CreatedAt int64
	UpdatedAt int64

	SyncMeta
}

// ChecklistResponse is one answered compliance question, denormalized from
// the checklist template at answer time.
type ChecklistResponse struct {
	ID           string
	SurveyID     string
	ZoneID       string // optional
	QuestionID   string
	Category     string
	QuestionText string
	Response     Answer
	Mandatory    bool
	Note         string
	AssetTag     string
	QRCode       string
	RFIDTag      string

	CreatedAt int64
	UpdatedAt int64

	SyncMeta
}

// UtilityEntry is one row of the utility-tracking feature, typically
// produced by CSV import.
type UtilityEntry struct {
	ID          string
	ReadingDate string // ISO date
	UtilityType string
	Supplier    string
	Amount      float64
	Reading     *float64 // optional meter reading
	Unit        string
	Notes       string

	CreatedAt int64

	SyncMeta
}

// QueueItem is one pending remote mutation in the durable sync queue.
type QueueItem struct {
	ID         int64
	Kind       EntityKind
	EntityID   string
	Action     QueueAction
	Payload    string // auxiliary data, e.g. the storage object key of a deleted media file
	Priority   int
	RetryCount int
	LastError  string
	CreatedAt  int64
}

// Default queue priorities per entity kind. Parents drain before children
// only by priority ordering — there is no dependency graph between items.
const (
	PrioritySurvey    = 100
	PriorityZone      = 80
	PriorityNote      = 60
	PriorityChecklist = 60
	PriorityMedia     = 40
	PriorityUtility   = 20
)

// DefaultPriority returns the drain priority for an entity kind.
func DefaultPriority(kind EntityKind) int {
	switch kind {
	case KindSurvey:
		return PrioritySurvey
	case KindZone:
		return PriorityZone
	case KindNote:
		return PriorityNote
	case KindChecklist:
		return PriorityChecklist
	case KindMedia:
		return PriorityMedia
	case KindUtility:
		return PriorityUtility
	default:
		return 0
	}
}

// NowNano returns the current time as Unix nanoseconds, the timestamp
// representation used throughout the store.
func NowNano() int64 {
	return time.Now().UnixNano()
}
