package backend

import "encoding/json"

// Wire records for the backend's relational tables. Column names follow
// the remote schema (snake_case). Timestamps are RFC 3339 strings as the
// backend returns them; created_at_ns carries the client-side creation
// instant used by the deduplication heuristic.

// SurveyRecord is a row of the surveys table.
type SurveyRecord struct {
	ID             string          `json:"id"`
	ClientName     string          `json:"client_name"`
	ClientCountry  string          `json:"client_country,omitempty"`
	ClientContacts json.RawMessage `json:"client_contacts,omitempty"`
	ShipName       string          `json:"ship_name"`
	Location       string          `json:"location,omitempty"`
	SurveyDate     string          `json:"survey_date"`
	DurationDays   int             `json:"duration_days,omitempty"`
	Scope          string          `json:"scope,omitempty"`
	Status         string          `json:"status"`
	CustomFields   json.RawMessage `json:"custom_fields,omitempty"`
	CreatedAtNanos int64           `json:"created_at_ns,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

// ZoneRecord is a row of the survey_zones table.
type ZoneRecord struct {
	ID             string          `json:"id"`
	SurveyID       string          `json:"survey_id"`
	Name           string          `json:"name"`
	TypeTags       json.RawMessage `json:"type_tags,omitempty"`
	DeckNumber     string          `json:"deck_number,omitempty"`
	Section        string          `json:"section,omitempty"`
	FrameRange     string          `json:"frame_range,omitempty"`
	CreatedAtNanos int64           `json:"created_at_ns,omitempty"`
}

// NoteRecord is a row of the survey_notes table.
type NoteRecord struct {
	ID             string `json:"id"`
	SurveyID       string `json:"survey_id"`
	ZoneID         string `json:"zone_id,omitempty"`
	Body           string `json:"body"`
	CreatedAtNanos int64  `json:"created_at_ns,omitempty"`
}

// MediaRecord is a row of the survey_media table. The blob itself lives in
// object storage at StoragePath; this row is metadata only.
type MediaRecord struct {
	ID             string `json:"id"`
	SurveyID       string `json:"survey_id"`
	ZoneID         string `json:"zone_id,omitempty"`
	FileName       string `json:"file_name"`
	FileType       string `json:"file_type,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	StoragePath    string `json:"storage_path"`
	ThumbnailPath  string `json:"thumbnail_path,omitempty"`
	CreatedAtNanos int64  `json:"created_at_ns,omitempty"`
}

// ChecklistRecord is a row of the survey_checklist_responses table.
type ChecklistRecord struct {
	ID             string `json:"id"`
	SurveyID       string `json:"survey_id"`
	ZoneID         string `json:"zone_id,omitempty"`
	QuestionID     string `json:"question_id"`
	Category       string `json:"category,omitempty"`
	QuestionText   string `json:"question_text,omitempty"`
	Response       string `json:"response"`
	Mandatory      bool   `json:"mandatory"`
	Note           string `json:"note,omitempty"`
	AssetTag       string `json:"asset_tag,omitempty"`
	QRCode         string `json:"qr_code,omitempty"`
	RFIDTag        string `json:"rfid_tag,omitempty"`
	CreatedAtNanos int64  `json:"created_at_ns,omitempty"`
}

// TravelExpenseRecord is a row of the travel_expenses table. Kind is
// "flight" or "hotel"; Details carries the free-form sub-object from the
// survey form.
type TravelExpenseRecord struct {
	ID             string          `json:"id"`
	SurveyID       string          `json:"survey_id"`
	Kind           string          `json:"kind"`
	Details        json.RawMessage `json:"details,omitempty"`
	CreatedAtNanos int64           `json:"created_at_ns,omitempty"`
}

// UtilityRecord is a row of the utility_entries table.
type UtilityRecord struct {
	ID             string   `json:"id"`
	ReadingDate    string   `json:"readingdate"`
	UtilityType    string   `json:"utilitytype"`
	Supplier       string   `json:"supplier"`
	Amount         float64  `json:"amount"`
	Reading        *float64 `json:"reading,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	CreatedAtNanos int64    `json:"created_at_ns,omitempty"`
}
