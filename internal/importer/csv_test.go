package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("minimal required columns", func(t *testing.T) {
		result, err := Parse(strings.NewReader(
			"readingdate,utilitytype,supplier,amount\n" +
				"2026-01-15,electricity,Grid Co,1204.50\n" +
				"2026-01-16,water,Aqua AS,88\n"))
		require.NoError(t, err)
		require.Len(t, result.Entries, 2)
		assert.Empty(t, result.Rejected)

		first := result.Entries[0]
		assert.Equal(t, "2026-01-15", first.ReadingDate)
		assert.Equal(t, "electricity", first.UtilityType)
		assert.Equal(t, "Grid Co", first.Supplier)
		assert.InDelta(t, 1204.50, first.Amount, 0.001)
		assert.Nil(t, first.Reading)
		assert.NotEmpty(t, first.ID)
	})

	t.Run("optional columns and any order", func(t *testing.T) {
		result, err := Parse(strings.NewReader(
			"notes,amount,supplier,reading,unit,utilitytype,readingdate\n" +
				"monthly,42.5,Grid Co,1234.5,kWh,electricity,2026-02-01\n"))
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)

		entry := result.Entries[0]
		assert.Equal(t, "monthly", entry.Notes)
		assert.Equal(t, "kWh", entry.Unit)
		require.NotNil(t, entry.Reading)
		assert.InDelta(t, 1234.5, *entry.Reading, 0.001)
	})

	t.Run("headers are case-insensitive", func(t *testing.T) {
		result, err := Parse(strings.NewReader(
			"ReadingDate,UtilityType,Supplier,Amount\n2026-01-01,gas,G,1\n"))
		require.NoError(t, err)
		assert.Len(t, result.Entries, 1)
	})

	t.Run("missing required column", func(t *testing.T) {
		_, err := Parse(strings.NewReader("readingdate,utilitytype,supplier\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing required column "amount"`)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := Parse(strings.NewReader("readingdate,utilitytype,supplier,amount,meterid\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown column "meterid"`)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := Parse(strings.NewReader("readingdate,utilitytype,supplier,amount,amount\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate column")
	})

	t.Run("bad rows are rejected without aborting", func(t *testing.T) {
		result, err := Parse(strings.NewReader(
			"readingdate,utilitytype,supplier,amount\n" +
				"2026-01-15,electricity,Grid Co,not-a-number\n" +
				",water,Aqua AS,10\n" +
				"2026-01-17,gas,Gas AS,55\n"))
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "gas", result.Entries[0].UtilityType)

		require.Len(t, result.Rejected, 2)
		assert.Equal(t, 2, result.Rejected[0].Line)
		assert.Contains(t, result.Rejected[0].Error(), "not a number")
		assert.Equal(t, 3, result.Rejected[1].Line)
	})

	t.Run("empty input fails on header", func(t *testing.T) {
		_, err := Parse(strings.NewReader(""))
		assert.Error(t, err)
	})
}
