package sync

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fairlead/surveysync/internal/backend"
)

// Conversions between local entities and backend wire records. Outbound
// conversion is strict: local data is already validated. Inbound
// conversion repairs instead of rejecting, because remote rows may have
// been written by older app versions.

func surveyToRecord(sv *Survey) (*backend.SurveyRecord, error) {
	contacts, err := json.Marshal(sv.ClientContacts)
	if err != nil {
		return nil, fmt.Errorf("sync: encoding survey %s contacts: %w", sv.ID, err)
	}

	custom, err := json.Marshal(sv.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("sync: encoding survey %s custom fields: %w", sv.ID, err)
	}

	return &backend.SurveyRecord{
		ID:             sv.ID,
		ClientName:     sv.ClientName,
		ClientCountry:  sv.ClientCountry,
		ClientContacts: contacts,
		ShipName:       sv.ShipName,
		Location:       sv.Location,
		SurveyDate:     sv.SurveyDate,
		DurationDays:   sv.DurationDays,
		Scope:          sv.Scope,
		Status:         string(sv.Status),
		CustomFields:   custom,
		CreatedAtNanos: sv.CreatedAt,
	}, nil
}

// surveyFromRecord maps a remote row to a local survey, repairing
// malformed JSON fields and out-of-range statuses along the way.
func surveyFromRecord(rec *backend.SurveyRecord) *Survey {
	return &Survey{
		ID:             rec.ID,
		ClientName:     rec.ClientName,
		ClientCountry:  rec.ClientCountry,
		ClientContacts: repairContacts(rec.ClientContacts),
		ShipName:       rec.ShipName,
		Location:       rec.Location,
		SurveyDate:     rec.SurveyDate,
		DurationDays:   rec.DurationDays,
		Scope:          rec.Scope,
		Status:         repairStatus(rec.Status),
		CustomFields:   repairObject(rec.CustomFields),
		CreatedAt:      rec.CreatedAtNanos,
	}
}

// travelExpenseRecords extracts a survey's travel sub-objects as rows of
// the travel_expenses table. Empty sub-objects produce no row.
func travelExpenseRecords(sv *Survey) ([]*backend.TravelExpenseRecord, error) {
	var recs []*backend.TravelExpenseRecord

	kinds := []struct {
		kind    string
		details map[string]any
	}{
		{"flight", sv.FlightDetails},
		{"hotel", sv.HotelDetails},
	}

	for _, k := range kinds {
		if len(k.details) == 0 {
			continue
		}

		details, err := json.Marshal(k.details)
		if err != nil {
			return nil, fmt.Errorf("sync: encoding survey %s %s details: %w", sv.ID, k.kind, err)
		}

		recs = append(recs, &backend.TravelExpenseRecord{
			ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte(sv.ID+"/"+k.kind)).String(),
			SurveyID:       sv.ID,
			Kind:           k.kind,
			Details:        details,
			CreatedAtNanos: sv.CreatedAt,
		})
	}

	return recs, nil
}

func zoneToRecord(z *Zone) (*backend.ZoneRecord, error) {
	tags, err := json.Marshal(z.TypeTags)
	if err != nil {
		return nil, fmt.Errorf("sync: encoding zone %s type tags: %w", z.ID, err)
	}

	return &backend.ZoneRecord{
		ID:             z.ID,
		SurveyID:       z.SurveyID,
		Name:           z.Name,
		TypeTags:       tags,
		DeckNumber:     z.DeckNumber,
		Section:        z.Section,
		FrameRange:     z.FrameRange,
		CreatedAtNanos: z.CreatedAt,
	}, nil
}

func noteToRecord(n *Note) *backend.NoteRecord {
	return &backend.NoteRecord{
		ID:             n.ID,
		SurveyID:       n.SurveyID,
		ZoneID:         n.ZoneID,
		Body:           n.Text,
		CreatedAtNanos: n.CreatedAt,
	}
}

func mediaToRecord(m *Media) *backend.MediaRecord {
	return &backend.MediaRecord{
		ID:             m.ID,
		SurveyID:       m.SurveyID,
		ZoneID:         m.ZoneID,
		FileName:       m.FileName,
		FileType:       m.FileType,
		FileSize:       m.FileSize,
		StoragePath:    m.StoragePath,
		ThumbnailPath:  m.ThumbnailPath,
		CreatedAtNanos: m.CreatedAt,
	}
}

func checklistToRecord(c *ChecklistResponse) *backend.ChecklistRecord {
	return &backend.ChecklistRecord{
		ID:             c.ID,
		SurveyID:       c.SurveyID,
		ZoneID:         c.ZoneID,
		QuestionID:     c.QuestionID,
		Category:       c.Category,
		QuestionText:   c.QuestionText,
		Response:       string(c.Response),
		Mandatory:      c.Mandatory,
		Note:           c.Note,
		AssetTag:       c.AssetTag,
		QRCode:         c.QRCode,
		RFIDTag:        c.RFIDTag,
		CreatedAtNanos: c.CreatedAt,
	}
}

func utilityToRecord(u *UtilityEntry) *backend.UtilityRecord {
	return &backend.UtilityRecord{
		ID:             u.ID,
		ReadingDate:    u.ReadingDate,
		UtilityType:    u.UtilityType,
		Supplier:       u.Supplier,
		Amount:         u.Amount,
		Reading:        u.Reading,
		Unit:           u.Unit,
		Notes:          u.Notes,
		CreatedAtNanos: u.CreatedAt,
	}
}
