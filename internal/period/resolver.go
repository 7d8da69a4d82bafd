// Package period resolves which academic periods make up the current
// academic year.
package period

import (
	"time"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/pkg/config"
)

// Resolver picks the target period for a moment in time. When no period
// contains that moment it falls back to the period with the latest end date;
// tieBreak decides between periods sharing that end date.
type Resolver struct {
	tieBreak string
}

// NewResolver builds a resolver. Unknown policies behave like config.TieBreakFirst.
func NewResolver(tieBreak string) *Resolver {
	if tieBreak != config.TieBreakHighestOrder {
		tieBreak = config.TieBreakFirst
	}
	return &Resolver{tieBreak: tieBreak}
}

// Target returns the period containing now, or the latest-ending one.
func (r *Resolver) Target(periods []models.AcademicPeriod, now time.Time) (models.AcademicPeriod, bool) {
	if len(periods) == 0 {
		return models.AcademicPeriod{}, false
	}
	if p, ok := ForDate(periods, now); ok {
		return p, true
	}

	var (
		latest    models.AcademicPeriod
		latestEnd time.Time
		found     bool
	)
	for _, p := range periods {
		end, ok := p.End()
		if !ok {
			continue
		}
		switch {
		case !found || end.After(latestEnd):
			latest, latestEnd, found = p, end, true
		case end.Equal(latestEnd) && r.tieBreak == config.TieBreakHighestOrder && p.Order > latest.Order:
			latest = p
		}
	}
	return latest, found
}

// RelevantPeriodIDs returns the ids of every period sharing the target's
// academic year, in input order.
func (r *Resolver) RelevantPeriodIDs(periods []models.AcademicPeriod, now time.Time) []string {
	target, ok := r.Target(periods, now)
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(periods))
	for _, p := range periods {
		if p.AcademicYear == target.AcademicYear {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// RelevantPeriodIDs resolves with the default tie-break policy.
func RelevantPeriodIDs(periods []models.AcademicPeriod, now time.Time) []string {
	return NewResolver(config.TieBreakFirst).RelevantPeriodIDs(periods, now)
}

// ForDate returns the first period whose [start, end] range contains t.
func ForDate(periods []models.AcademicPeriod, t time.Time) (models.AcademicPeriod, bool) {
	for _, p := range periods {
		if p.Contains(t) {
			return p, true
		}
	}
	return models.AcademicPeriod{}, false
}

// Find looks a period up by id.
func Find(periods []models.AcademicPeriod, id string) (models.AcademicPeriod, bool) {
	for _, p := range periods {
		if p.ID == id {
			return p, true
		}
	}
	return models.AcademicPeriod{}, false
}

// SameIDs reports whether two resolved id lists hold the same set.
func SameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
