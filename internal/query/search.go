package query

import (
	"strings"

	"golang.org/x/text/cases"

	"golang-reconciliation-portal/internal/models"
)

// SearchField extracts one searchable value from a record.
type SearchField func(r *models.ReconciliationRecord) string

// Built-in search fields.
var (
	SearchID          SearchField = func(r *models.ReconciliationRecord) string { return r.ID }
	SearchAccountName SearchField = func(r *models.ReconciliationRecord) string { return r.AccountName }
	SearchPreparer    SearchField = func(r *models.ReconciliationRecord) string { return r.PreparerName }
	SearchReviewer    SearchField = func(r *models.ReconciliationRecord) string { return r.ReviewerName }
	SearchAccountType SearchField = func(r *models.ReconciliationRecord) string { return r.AccountType }
	SearchFrequency   SearchField = func(r *models.ReconciliationRecord) string { return r.Frequency.String() }
	SearchDivision    SearchField = func(r *models.ReconciliationRecord) string { return r.Division }
)

// DefaultSearchFields is the field set used by the list views.
var DefaultSearchFields = []SearchField{
	SearchID,
	SearchAccountName,
	SearchPreparer,
	SearchReviewer,
	SearchAccountType,
	SearchFrequency,
}

// SearchMatcher is a case-insensitive substring matcher over a set of record fields.
// A match on any field qualifies.
type SearchMatcher struct {
	fields []SearchField
}

// NewSearchMatcher creates a matcher over fields, or DefaultSearchFields when none are given.
func NewSearchMatcher(fields ...SearchField) *SearchMatcher {
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}
	return &SearchMatcher{fields: fields}
}

// Compile prepares needle for matching. An empty or blank needle matches everything.
// The returned predicate must not be shared between goroutines.
func (m *SearchMatcher) Compile(needle string) func(r *models.ReconciliationRecord) bool {
	fold := cases.Fold()
	folded := fold.String(strings.TrimSpace(needle))
	if folded == "" {
		return func(*models.ReconciliationRecord) bool { return true }
	}

	values := make([]string, len(m.fields))
	return func(r *models.ReconciliationRecord) bool {
		for i, field := range m.fields {
			values[i] = strings.TrimSpace(field(r))
		}
		return strings.Contains(fold.String(strings.Join(values, "|")), folded)
	}
}

// Match reports whether a single record matches needle.
func (m *SearchMatcher) Match(r *models.ReconciliationRecord, needle string) bool {
	return m.Compile(needle)(r)
}
