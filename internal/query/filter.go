// Package query derives views of a record collection: filtering, search,
// sorting and pagination, plus the value-typed state that ties them together.
//
// Nothing in this package mutates its input. Every function returns a fresh
// slice, so the collection owned by a controller stays intact across views.
package query

import (
	"strings"

	"golang-reconciliation-portal/internal/fieldmap"
	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/period"
)

// FilterEngine evaluates FilterCriteria against records.
type FilterEngine struct {
	search *SearchMatcher
}

// NewFilterEngine creates a FilterEngine. A nil matcher uses the default search fields.
func NewFilterEngine(search *SearchMatcher) *FilterEngine {
	if search == nil {
		search = NewSearchMatcher()
	}
	return &FilterEngine{search: search}
}

var defaultFilterEngine = NewFilterEngine(nil)

// Filter applies criteria with the default search fields.
func Filter(records []*models.ReconciliationRecord, criteria models.FilterCriteria) []*models.ReconciliationRecord {
	return defaultFilterEngine.Filter(records, criteria)
}

// Filter returns the records matching every constraint of criteria, in input order.
func (fe *FilterEngine) Filter(records []*models.ReconciliationRecord, criteria models.FilterCriteria) []*models.ReconciliationRecord {
	out := make([]*models.ReconciliationRecord, 0, len(records))
	if criteria.IsEmpty() {
		return append(out, records...)
	}

	matches := fe.predicate(criteria)
	for _, r := range records {
		if r != nil && matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (fe *FilterEngine) predicate(c models.FilterCriteria) func(r *models.ReconciliationRecord) bool {
	search := fe.search.Compile(c.SearchText)
	statuses := toSet(c.StatusIn)
	priorities := toSet(c.PriorityIn)
	frequencies := toSet(c.FrequencyIn)
	risks := toSet(c.RiskLevelIn)
	accountTypes := make(map[string]struct{}, len(c.AccountTypeIn))
	for _, t := range c.AccountTypeIn {
		accountTypes[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return func(r *models.ReconciliationRecord) bool {
		if !search(r) {
			return false
		}
		if !inSet(statuses, r.Status) || !inSet(priorities, r.Priority) || !inSet(frequencies, r.Frequency) {
			return false
		}
		if !inSet(accountTypes, strings.ToLower(strings.TrimSpace(r.AccountType))) {
			return false
		}
		if len(risks) > 0 && !inSet(risks, fieldmap.ClassifyRisk(r.RiskRating)) {
			return false
		}
		if c.DateRange != nil && !inDateRange(r, c.DateField, *c.DateRange) {
			return false
		}
		if c.PeriodKey != "" && period.MonthKey(r.Deadline) != strings.TrimSpace(c.PeriodKey) {
			return false
		}
		return true
	}
}

// inDateRange excludes records whose date cannot be parsed.
func inDateRange(r *models.ReconciliationRecord, field models.DateField, rng models.DateRange) bool {
	value := r.Deadline
	if field == models.DateFieldCreatedAt {
		value = r.CreatedAt
	}
	t, ok := period.ParseDate(value)
	if !ok {
		return false
	}
	return period.InRange(t, rng.Start, rng.End)
}

func toSet[T comparable](values []T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// inSet treats an empty set as no constraint.
func inSet[T comparable](set map[T]struct{}, v T) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[v]
	return ok
}
