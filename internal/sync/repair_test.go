package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlead/surveysync/internal/backend"
)

func TestRepairSurvey(t *testing.T) {
	store := newTestStore(t)

	t.Run("invalid status becomes draft", func(t *testing.T) {
		sv := makeTestSurvey("s1")
		sv.Status = "bogus"

		assert.True(t, store.RepairSurvey(sv))
		assert.Equal(t, StatusDraft, sv.Status)
	})

	t.Run("valid survey untouched", func(t *testing.T) {
		sv := makeTestSurvey("s1")
		sv.Status = StatusCompleted

		assert.False(t, store.RepairSurvey(sv))
		assert.Equal(t, StatusCompleted, sv.Status)
	})
}

func TestSurveyFromRecordRepairs(t *testing.T) {
	t.Run("non-array contacts become empty list", func(t *testing.T) {
		rec := &backend.SurveyRecord{
			ID:             "s1",
			ClientName:     "Client",
			ShipName:       "Ship",
			SurveyDate:     "2026-01-01",
			Status:         "draft",
			ClientContacts: json.RawMessage(`"not-an-array"`),
		}

		sv := surveyFromRecord(rec)
		require.NotNil(t, sv.ClientContacts)
		assert.Empty(t, sv.ClientContacts)
	})

	t.Run("non-object custom fields become empty map", func(t *testing.T) {
		rec := &backend.SurveyRecord{
			ID:           "s1",
			Status:       "draft",
			CustomFields: json.RawMessage(`[1, 2, 3]`),
		}

		sv := surveyFromRecord(rec)
		require.NotNil(t, sv.CustomFields)
		assert.Empty(t, sv.CustomFields)
	})

	t.Run("out-of-range status becomes draft", func(t *testing.T) {
		rec := &backend.SurveyRecord{ID: "s1", Status: "archived"}

		sv := surveyFromRecord(rec)
		assert.Equal(t, StatusDraft, sv.Status)
	})

	t.Run("well-formed record passes through", func(t *testing.T) {
		rec := &backend.SurveyRecord{
			ID:             "s1",
			ClientName:     "Client",
			ShipName:       "Ship",
			SurveyDate:     "2026-01-01",
			Status:         "in-progress",
			ClientContacts: json.RawMessage(`[{"name":"Ola"}]`),
			CustomFields:   json.RawMessage(`{"imo":"123"}`),
			CreatedAtNanos: 42,
		}

		sv := surveyFromRecord(rec)
		assert.Equal(t, StatusInProgress, sv.Status)
		require.Len(t, sv.ClientContacts, 1)
		assert.Equal(t, "Ola", sv.ClientContacts[0].Name)
		assert.Equal(t, "123", sv.CustomFields["imo"])
		assert.Equal(t, int64(42), sv.CreatedAt)
	})

	t.Run("absent fields stay nil", func(t *testing.T) {
		sv := surveyFromRecord(&backend.SurveyRecord{ID: "s1", Status: "draft"})
		assert.Nil(t, sv.ClientContacts)
		assert.Nil(t, sv.CustomFields)
	})
}
