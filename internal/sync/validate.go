package sync

import (
	"fmt"
	"strings"
)

// ValidationError carries every rule a record violated, not just the
// first, so the caller can surface the complete list to the user.
type ValidationError struct {
	Entity string
	Rules  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sync: invalid %s: %s", e.Entity, strings.Join(e.Rules, "; "))
}

// ValidateSurvey checks the rules a survey must satisfy before it can be
// persisted: client name, ship name and survey date are required, and the
// status must be one of the enumerated values.
func ValidateSurvey(sv *Survey) error {
	var rules []string

	if strings.TrimSpace(sv.ClientName) == "" {
		rules = append(rules, "client name must not be empty")
	}

	if strings.TrimSpace(sv.ShipName) == "" {
		rules = append(rules, "ship name must not be empty")
	}

	if strings.TrimSpace(sv.SurveyDate) == "" {
		rules = append(rules, "survey date must not be empty")
	}

	if !ValidStatus(sv.Status) {
		rules = append(rules, fmt.Sprintf("status %q is not one of draft, in-progress, completed", sv.Status))
	}

	if len(rules) > 0 {
		return &ValidationError{Entity: "survey", Rules: rules}
	}

	return nil
}

// ValidateZone checks that a zone carries its owning survey and a name.
func ValidateZone(z *Zone) error {
	var rules []string

	if z.SurveyID == "" {
		rules = append(rules, "survey id must not be empty")
	}

	if strings.TrimSpace(z.Name) == "" {
		rules = append(rules, "zone name must not be empty")
	}

	if len(rules) > 0 {
		return &ValidationError{Entity: "zone", Rules: rules}
	}

	return nil
}

// ValidateNote checks that a note carries its owning survey and body text.
func ValidateNote(n *Note) error {
	var rules []string

	if n.SurveyID == "" {
		rules = append(rules, "survey id must not be empty")
	}

	if strings.TrimSpace(n.Text) == "" {
		rules = append(rules, "note text must not be empty")
	}

	if len(rules) > 0 {
		return &ValidationError{Entity: "note", Rules: rules}
	}

	return nil
}

// ValidateUtilityEntry checks the fields the CSV importer also requires.
func ValidateUtilityEntry(u *UtilityEntry) error {
	var rules []string

	if strings.TrimSpace(u.ReadingDate) == "" {
		rules = append(rules, "reading date must not be empty")
	}

	if strings.TrimSpace(u.UtilityType) == "" {
		rules = append(rules, "utility type must not be empty")
	}

	if strings.TrimSpace(u.Supplier) == "" {
		rules = append(rules, "supplier must not be empty")
	}

	if len(rules) > 0 {
		return &ValidationError{Entity: "utility entry", Rules: rules}
	}

	return nil
}
