package query

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"golang-reconciliation-portal/internal/fieldmap"
	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/period"
)

// SortField names a sortable record field
type SortField string

const (
	SortNone        SortField = ""
	SortID          SortField = "id"
	SortAccountName SortField = "accountName"
	SortAccountType SortField = "accountType"
	SortPreparer    SortField = "preparerName"
	SortReviewer    SortField = "reviewerName"
	SortDivision    SortField = "division"
	SortCurrency    SortField = "currencyCode"
	SortFrequency   SortField = "frequency"
	SortStatus      SortField = "status"
	SortDeadline    SortField = "deadline"
	SortCreatedAt   SortField = "createdAt"
	SortRiskRank    SortField = "riskRank"
	SortPriority    SortField = "priority"
	SortLocked      SortField = "locked"
	SortActive      SortField = "active"
	SortOverdue     SortField = "overdue"
	SortBalance     SortField = "balance"
)

// SortOrder is the direction of a sort
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Flip returns the opposite order.
func (o SortOrder) Flip() SortOrder {
	if o == Descending {
		return Ascending
	}
	return Descending
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindDate
	kindRank
	kindPriority
	kindBool
	kindDecimal
)

var sortFields = map[SortField]fieldKind{
	SortID:          kindText,
	SortAccountName: kindText,
	SortAccountType: kindText,
	SortPreparer:    kindText,
	SortReviewer:    kindText,
	SortDivision:    kindText,
	SortCurrency:    kindText,
	SortFrequency:   kindText,
	SortStatus:      kindText,
	SortDeadline:    kindDate,
	SortCreatedAt:   kindDate,
	SortRiskRank:    kindRank,
	SortPriority:    kindPriority,
	SortLocked:      kindBool,
	SortActive:      kindBool,
	SortOverdue:     kindBool,
	SortBalance:     kindDecimal,
}

// ParseSortField resolves a field name case-insensitively.
func ParseSortField(name string) (SortField, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return SortNone, nil
	}
	for field := range sortFields {
		if strings.EqualFold(string(field), trimmed) {
			return field, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort field %q", name)
}

// ParseSortOrder resolves "asc"/"desc". Empty means ascending.
func ParseSortOrder(name string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("unknown sort order %q", name)
	}
}

// SortState is the active sort column and direction.
type SortState struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"order"`
}

// Toggle selects field. Selecting the active field flips the order; a new field
// starts ascending.
func (s SortState) Toggle(field SortField) SortState {
	if field == s.Field && field != SortNone {
		return SortState{Field: field, Order: s.Order.Flip()}
	}
	return SortState{Field: field, Order: Ascending}
}

// Sort returns a stably sorted copy of records. Unknown fields leave the order unchanged.
func Sort(records []*models.ReconciliationRecord, field SortField, order SortOrder) []*models.ReconciliationRecord {
	out := make([]*models.ReconciliationRecord, len(records))

	kind, ok := sortFields[field]
	if !ok {
		copy(out, records)
		return out
	}

	keys := make([]sortKey, len(records))
	fold := cases.Fold()
	for i, r := range records {
		keys[i] = keyOf(r, field, kind, fold)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return compareKeys(keys[i], keys[j], kind, order) < 0
	})

	for i, k := range keys {
		out[i] = k.record
	}
	return out
}

// sortKey holds the precomputed comparable value of one record.
type sortKey struct {
	text    string
	num     int64
	missing bool
	record  *models.ReconciliationRecord
}

func keyOf(r *models.ReconciliationRecord, field SortField, kind fieldKind, fold cases.Caser) sortKey {
	k := sortKey{record: r}
	if r == nil {
		k.missing = true
		return k
	}

	switch kind {
	case kindText:
		k.text = fold.String(strings.TrimSpace(textValue(r, field)))
	case kindDate:
		value := r.Deadline
		if field == SortCreatedAt {
			value = r.CreatedAt
		}
		if t, ok := period.ParseDate(value); ok {
			k.num = t.Unix()
		} else {
			k.missing = true
		}
	case kindRank:
		rank := fieldmap.RiskRank(r.RiskRating)
		k.missing = rank == fieldmap.RankMissing
		k.num = int64(rank)
	case kindPriority:
		k.num = int64(fieldmap.PriorityRank(r.Priority))
	case kindBool:
		if boolValue(r, field) {
			k.num = 1
		}
	}
	return k
}

func textValue(r *models.ReconciliationRecord, field SortField) string {
	switch field {
	case SortID:
		return r.ID
	case SortAccountName:
		return r.AccountName
	case SortAccountType:
		return r.AccountType
	case SortPreparer:
		return r.PreparerName
	case SortReviewer:
		return r.ReviewerName
	case SortDivision:
		return r.Division
	case SortCurrency:
		return r.CurrencyCode
	case SortFrequency:
		return r.Frequency.String()
	case SortStatus:
		return r.Status.String()
	default:
		return ""
	}
}

func boolValue(r *models.ReconciliationRecord, field SortField) bool {
	switch field {
	case SortLocked:
		return r.Locked
	case SortActive:
		return r.Active
	case SortOverdue:
		return r.Overdue
	default:
		return false
	}
}

// compareKeys returns the ordering of a and b under order. Unparsable dates are
// the lowest value and take part in the order; a missing risk rank is always last.
func compareKeys(a, b sortKey, kind fieldKind, order SortOrder) int {
	if kind == kindRank {
		switch {
		case a.missing && b.missing:
			return 0
		case a.missing:
			return 1
		case b.missing:
			return -1
		}
	}

	c := 0
	switch kind {
	case kindText:
		c = strings.Compare(a.text, b.text)
	case kindDate:
		switch {
		case a.missing && b.missing:
			c = 0
		case a.missing:
			c = -1
		case b.missing:
			c = 1
		default:
			c = compareInt(a.num, b.num)
		}
	case kindDecimal:
		c = compareBalance(a.record, b.record)
	default:
		c = compareInt(a.num, b.num)
	}

	if order == Descending {
		return -c
	}
	return c
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBalance(a, b *models.ReconciliationRecord) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Balance.Cmp(b.Balance)
	}
}
