package entity

import "strings"

// StatusAll is the status filter sentinel that matches every patient.
const StatusAll = "all"

// RosterFilter is a domain-level filter for narrowing the patient roster.
// Used by the roster package and the delivery layer to avoid coupling with DTOs.
type RosterFilter struct {
	Term   string // substring of first name, last name or email
	Status string // exact status (case-insensitive) or StatusAll
}

// Normalized returns the filter with the term trimmed and lower-cased and an empty
// status replaced by StatusAll.
func (f RosterFilter) Normalized() RosterFilter {
	status := strings.TrimSpace(f.Status)
	if status == "" {
		status = StatusAll
	}
	return RosterFilter{
		Term:   strings.ToLower(strings.TrimSpace(f.Term)),
		Status: status,
	}
}
