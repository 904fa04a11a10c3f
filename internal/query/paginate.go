package query

import (
	"golang-reconciliation-portal/internal/models"
)

// DefaultPageSize is used when a page size is not positive.
const DefaultPageSize = 10

// Page is one slice of a result set. Start is zero-based and End exclusive.
type Page struct {
	Items      []*models.ReconciliationRecord `json:"items"`
	Page       int                            `json:"page"`
	PageSize   int                            `json:"pageSize"`
	Start      int                            `json:"start"`
	End        int                            `json:"end"`
	TotalPages int                            `json:"totalPages"`
	Total      int                            `json:"total"`
}

// HasNext reports whether a later page exists
func (p Page) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrevious reports whether an earlier page exists
func (p Page) HasPrevious() bool {
	return p.Page > 1
}

// TotalPages returns max(1, ceil(total/pageSize)).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate slices records into the requested page. The page number is clamped
// into [1, TotalPages] so a shrinking result set never yields a broken page.
func Paginate(records []*models.ReconciliationRecord, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(records)
	totalPages := TotalPages(total, pageSize)

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]*models.ReconciliationRecord, end-start)
	copy(items, records[start:end])

	return Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Start:      start,
		End:        end,
		TotalPages: totalPages,
		Total:      total,
	}
}
