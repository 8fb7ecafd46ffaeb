package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSurvey(t *testing.T) {
	t.Run("valid survey passes", func(t *testing.T) {
		assert.NoError(t, ValidateSurvey(makeTestSurvey("s1")))
	})

	t.Run("every violated rule is reported", func(t *testing.T) {
		err := ValidateSurvey(&Survey{Status: "bogus"})
		require.Error(t, err)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Rules, 4)
		assert.Contains(t, err.Error(), "client name")
		assert.Contains(t, err.Error(), "ship name")
		assert.Contains(t, err.Error(), "survey date")
		assert.Contains(t, err.Error(), "status")
	})

	t.Run("whitespace-only names are rejected", func(t *testing.T) {
		sv := makeTestSurvey("s1")
		sv.ClientName = "   "

		err := ValidateSurvey(sv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client name")
	})

	t.Run("all enumerated statuses are accepted", func(t *testing.T) {
		for _, status := range []SurveyStatus{StatusDraft, StatusInProgress, StatusCompleted} {
			sv := makeTestSurvey("s1")
			sv.Status = status
			assert.NoError(t, ValidateSurvey(sv), "status %s", status)
		}
	})
}

func TestValidateZone(t *testing.T) {
	assert.NoError(t, ValidateZone(&Zone{SurveyID: "s1", Name: "Bridge"}))

	err := ValidateZone(&Zone{})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Rules, 2)
}

func TestValidateNote(t *testing.T) {
	assert.NoError(t, ValidateNote(&Note{SurveyID: "s1", Text: "corrosion at frame 12"}))
	assert.Error(t, ValidateNote(&Note{SurveyID: "s1", Text: "  "}))
}

func TestValidateUtilityEntry(t *testing.T) {
	valid := &UtilityEntry{ReadingDate: "2026-01-01", UtilityType: "water", Supplier: "A", Amount: 3}
	assert.NoError(t, ValidateUtilityEntry(valid))

	err := ValidateUtilityEntry(&UtilityEntry{})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Rules, 3)
}
