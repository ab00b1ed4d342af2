package roster

import (
	"strings"

	"patient-management/internal/domain/entity"
)

// Filter returns the patients matching both the search term and the status, in their
// original order. The term is trimmed and matched case-insensitively as a substring of
// the first name, last name or e-mail; an empty term matches everyone. The status
// "all" (any case) or an empty status matches everyone, any other value must equal the
// patient's status ignoring case. The input is never modified and the result is always
// a new slice.
func Filter(all []entity.Patient, term, status string) []entity.Patient {
	return Apply(all, entity.RosterFilter{Term: term, Status: status})
}

// Apply is Filter for a prepared RosterFilter.
func Apply(all []entity.Patient, filter entity.RosterFilter) []entity.Patient {
	filter = filter.Normalized()

	visible := make([]entity.Patient, 0, len(all))
	for i := range all {
		if matches(&all[i], filter) {
			visible = append(visible, all[i])
		}
	}
	return visible
}

// Matches reports whether a single patient passes the filter.
func Matches(p *entity.Patient, filter entity.RosterFilter) bool {
	return matches(p, filter.Normalized())
}

func matches(p *entity.Patient, filter entity.RosterFilter) bool {
	return matchesTerm(p, filter.Term) && matchesStatus(p, filter.Status)
}

func matchesTerm(p *entity.Patient, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.FirstName), term) ||
		strings.Contains(strings.ToLower(p.LastName), term) ||
		strings.Contains(strings.ToLower(p.Email), term)
}

func matchesStatus(p *entity.Patient, status string) bool {
	if strings.EqualFold(status, entity.StatusAll) {
		return true
	}
	return strings.EqualFold(p.Status, status)
}
