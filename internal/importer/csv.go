// Package importer reads utility-tracking CSV files into the local store
// and pushes them to the backend. A one-shot import handles a single file;
// the watcher imports every CSV dropped into a directory.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	syncpkg "github.com/fairlead/surveysync/internal/sync"
)

// Required and optional CSV header names, lowercase.
var (
	requiredHeaders = []string{"readingdate", "utilitytype", "supplier", "amount"}
	optionalHeaders = []string{"reading", "unit", "notes"}
)

// RowError describes one rejected CSV row. Rejected rows do not abort the
// import; the remaining rows still land.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// ParseResult is the outcome of parsing one CSV file.
type ParseResult struct {
	Entries  []*syncpkg.UtilityEntry
	Rejected []*RowError
}

// Parse reads utility entries from CSV data. The header row is mandatory
// and must contain readingdate, utilitytype, supplier and amount; reading,
// unit and notes are optional. Header matching is case-insensitive and
// order-independent. Unknown columns are an error so a typoed header never
// silently drops a column.
func Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("importer: reading header row: %w", err)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	line := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		line++

		if err != nil {
			result.Rejected = append(result.Rejected, &RowError{Line: line, Err: err})

			continue
		}

		entry, err := parseRow(record, columns)
		if err != nil {
			result.Rejected = append(result.Rejected, &RowError{Line: line, Err: err})

			continue
		}

		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// mapHeader resolves header names to column indexes, verifying that every
// required column is present and no unknown column sneaks in.
func mapHeader(header []string) (map[string]int, error) {
	known := make(map[string]bool, len(requiredHeaders)+len(optionalHeaders))
	for _, h := range requiredHeaders {
		known[h] = true
	}

	for _, h := range optionalHeaders {
		known[h] = true
	}

	columns := make(map[string]int, len(header))

	var errs []error

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))

		if !known[name] {
			errs = append(errs, fmt.Errorf("importer: unknown column %q", raw))

			continue
		}

		if _, dup := columns[name]; dup {
			errs = append(errs, fmt.Errorf("importer: duplicate column %q", raw))

			continue
		}

		columns[name] = i
	}

	for _, h := range requiredHeaders {
		if _, ok := columns[h]; !ok {
			errs = append(errs, fmt.Errorf("importer: missing required column %q", h))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return columns, nil
}

// field returns the trimmed cell for a mapped column, or "" when the
// column is absent or the row is short.
func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}

// parseRow coerces one CSV record into a utility entry.
func parseRow(record []string, columns map[string]int) (*syncpkg.UtilityEntry, error) {
	entry := &syncpkg.UtilityEntry{
		ID:          uuid.NewString(),
		ReadingDate: field(record, columns, "readingdate"),
		UtilityType: field(record, columns, "utilitytype"),
		Supplier:    field(record, columns, "supplier"),
		Unit:        field(record, columns, "unit"),
		Notes:       field(record, columns, "notes"),
		CreatedAt:   syncpkg.NowNano(),
	}

	amountRaw := field(record, columns, "amount")

	amount, err := strconv.ParseFloat(amountRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a number", amountRaw)
	}

	entry.Amount = amount

	if readingRaw := field(record, columns, "reading"); readingRaw != "" {
		reading, err := strconv.ParseFloat(readingRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %q is not a number", readingRaw)
		}

		entry.Reading = &reading
	}

	if err := syncpkg.ValidateUtilityEntry(entry); err != nil {
		return nil, err
	}

	return entry, nil
}
