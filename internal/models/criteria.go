package models

import (
	"time"
)

// DateField selects which record date a DateRange applies to
type DateField string

const (
	DateFieldDeadline  DateField = "deadline"
	DateFieldCreatedAt DateField = "createdAt"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FilterCriteria is the set of constraints applied to a record collection.
// An empty set-valued field places no constraint.
type FilterCriteria struct {
	SearchText    string      `json:"searchText,omitempty"`
	StatusIn      []Status    `json:"statusIn,omitempty"`
	PriorityIn    []Priority  `json:"priorityIn,omitempty"`
	FrequencyIn   []Frequency `json:"frequencyIn,omitempty"`
	AccountTypeIn []string    `json:"accountTypeIn,omitempty"`
	RiskLevelIn   []Priority  `json:"riskLevelIn,omitempty"`
	DateRange     *DateRange  `json:"dateRange,omitempty"`
	DateField     DateField   `json:"dateField,omitempty"`
	PeriodKey     string      `json:"periodKey,omitempty"`
}

// IsEmpty reports whether the criteria is the identity filter.
func (c FilterCriteria) IsEmpty() bool {
	return c.SearchText == "" &&
		len(c.StatusIn) == 0 &&
		len(c.PriorityIn) == 0 &&
		len(c.FrequencyIn) == 0 &&
		len(c.AccountTypeIn) == 0 &&
		len(c.RiskLevelIn) == 0 &&
		c.DateRange == nil &&
		c.PeriodKey == ""
}

// PeriodInfo is the current working and reconciliation period returned by the portal.
type PeriodInfo struct {
	WorkingPeriod        string            `json:"workingPeriod"`
	ReconciliationPeriod string            `json:"reconciliationPeriod"`
	Deadlines            map[string]string `json:"deadlines,omitempty"`
}
