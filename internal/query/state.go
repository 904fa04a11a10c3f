package query

import (
	"golang-reconciliation-portal/internal/models"
)

// State is everything that determines the visible page of a reconciliation view.
// It is a value type: every setter returns a new State and leaves the receiver
// untouched.
type State struct {
	Criteria models.FilterCriteria `json:"criteria"`
	Sort     SortState             `json:"sort"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}

// NewState returns the initial state of a view.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize, Sort: SortState{Order: Ascending}}
}

// SetCriteria replaces the filter criteria and returns to the first page.
func (s State) SetCriteria(criteria models.FilterCriteria) State {
	s.Criteria = criteria
	s.Page = 1
	return s
}

// SetSearch replaces the search text and returns to the first page.
func (s State) SetSearch(text string) State {
	s.Criteria.SearchText = text
	s.Page = 1
	return s
}

// SetSort toggles the sort on field.
func (s State) SetSort(field SortField) State {
	s.Sort = s.Sort.Toggle(field)
	return s
}

// SetSortOrder sets field and order explicitly.
func (s State) SetSortOrder(field SortField, order SortOrder) State {
	s.Sort = SortState{Field: field, Order: order}
	return s
}

// SetPage moves to page. Clamping happens when the state is applied.
func (s State) SetPage(page int) State {
	s.Page = page
	return s
}

// SetPageSize changes the page size and returns to the first page.
func (s State) SetPageSize(size int) State {
	if size <= 0 {
		size = DefaultPageSize
	}
	s.PageSize = size
	s.Page = 1
	return s
}

// Apply runs filter, sort and paginate over records. The result depends only
// on records and state.
func Apply(records []*models.ReconciliationRecord, state State) Page {
	return ApplyWith(defaultFilterEngine, records, state)
}

// ApplyWith is Apply with a custom FilterEngine.
func ApplyWith(engine *FilterEngine, records []*models.ReconciliationRecord, state State) Page {
	filtered := engine.Filter(records, state.Criteria)
	sorted := Sort(filtered, state.Sort.Field, state.Sort.Order)
	return Paginate(sorted, state.Page, state.PageSize)
}
