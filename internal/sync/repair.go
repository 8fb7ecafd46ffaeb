package sync

import (
	"encoding/json"
	"log/slog"
)

// Repair normalizes malformed survey data in place rather than rejecting
// the record. Records round-trip through JSON on the wire and through older
// app versions, so structurally wrong fields do show up: contacts that are
// not an array, detail blobs that are not an object, statuses outside the
// enumeration. Repaired data is kept; the original malformed value is
// discarded.

// RepairSurvey fixes a survey's repairable fields and reports whether
// anything was changed.
func (s *Store) RepairSurvey(sv *Survey) bool {
	repaired := false

	if !ValidStatus(sv.Status) {
		s.logger.Warn("repairing survey status",
			slog.String("id", sv.ID),
			slog.String("status", string(sv.Status)),
		)

		sv.Status = StatusDraft
		repaired = true
	}

	return repaired
}

// repairContacts decodes a raw client_contacts value, substituting an
// empty list when the value is not a JSON array.
func repairContacts(raw json.RawMessage) []Contact {
	if len(raw) == 0 {
		return nil
	}

	var contacts []Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return []Contact{}
	}

	return contacts
}

// repairObject decodes a raw JSON value expected to be an object,
// substituting an empty map when it is anything else.
func repairObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return map[string]any{}
	}

	return obj
}

// repairStatus maps any value outside the status enumeration to draft.
func repairStatus(raw string) SurveyStatus {
	status := SurveyStatus(raw)
	if !ValidStatus(status) {
		return StatusDraft
	}

	return status
}
