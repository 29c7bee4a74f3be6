package sessions

import (
	"strings"

	"github.com/Tiliavir/wakalyze/internal/model"
)

// Filter keeps sessions whose project contains any of the comma-separated
// terms in filter, case-insensitively. Days left without sessions are
// dropped. A nil or blank filter returns a copy of days.
func Filter(days []model.DaySessions, filter *string) []model.DaySessions {
	terms := filterTerms(filter)
	if len(terms) == 0 {
		return copyDays(days)
	}

	out := make([]model.DaySessions, 0, len(days))
	for _, day := range days {
		var kept []model.Session
		for _, s := range day.Sessions {
			if matchesAny(strings.ToLower(s.ProjectName()), terms) {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			out = append(out, model.DaySessions{Date: day.Date, Sessions: kept})
		}
	}
	return out
}

// ParseFilter splits filter text into lowercased, trimmed, non-empty terms.
func ParseFilter(text string) []string {
	var terms []string
	for _, part := range strings.Split(text, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}

func filterTerms(filter *string) []string {
	if filter == nil {
		return nil
	}
	return ParseFilter(*filter)
}

func matchesAny(project string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(project, term) {
			return true
		}
	}
	return false
}

func copyDays(days []model.DaySessions) []model.DaySessions {
	out := make([]model.DaySessions, len(days))
	for i, day := range days {
		sessions := make([]model.Session, len(day.Sessions))
		copy(sessions, day.Sessions)
		out[i] = model.DaySessions{Date: day.Date, Sessions: sessions}
	}
	return out
}
