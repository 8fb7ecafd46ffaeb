package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	syncpkg "github.com/fairlead/surveysync/internal/sync"
)

func makeSurveyFixture() *syncpkg.Survey {
	return &syncpkg.Survey{
		ID:         "s1",
		ClientName: "Nordic Shipping AS",
		ShipName:   "MV Aurora",
		SurveyDate: "2026-03-14",
		Status:     syncpkg.StatusDraft,
	}
}

func TestPrintTable(t *testing.T) {
	var sb strings.Builder

	printTable(&sb,
		[]string{"SHIP", "STATUS"},
		[][]string{
			{"MV Aurora", "draft"},
			{"MV B", "completed"},
		})

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "SHIP       STATUS", lines[0])
	assert.Equal(t, "MV Aurora  draft", lines[1])
	assert.Equal(t, "MV B       completed", lines[2])
}

func TestPrintTableWithColoredCells(t *testing.T) {
	var sb strings.Builder

	colored := colorYellow + "pending" + colorReset

	printTable(&sb,
		[]string{"SYNC"},
		[][]string{{colored}, {"synced"}})

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	// Color escapes must not skew the column width.
	assert.Equal(t, 7, visibleLen(colored))
}

func TestVisibleLen(t *testing.T) {
	assert.Equal(t, 5, visibleLen("plain"))
	assert.Equal(t, 5, visibleLen(colorRed+"plain"+colorReset))
	assert.Zero(t, visibleLen(""))
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	assert.NotContains(t, formatTime(now), "2026", "same-year timestamps omit the year")

	old := time.Date(2019, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Contains(t, formatTime(old), "2019")
}

func TestSyncState(t *testing.T) {
	sv := makeSurveyFixture()
	assert.Equal(t, "synced", syncState(sv))

	sv.NeedsSync = true
	assert.Equal(t, "pending", syncState(sv))

	sv.LastSyncError = "boom"
	assert.Equal(t, "error", syncState(sv))
}
