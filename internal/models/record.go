// Package models holds the canonical types of the reconciliation engine.
//
// Everything downstream of the normalizer works on ReconciliationRecord and
// never on the raw payload shape again.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder is shown for descriptive fields the payload does not carry.
const Placeholder = "—"

// Priority is the derived urgency of a record
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// IsValid checks if the priority is one of the known values
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Status is the display status of a record. Backend codes without a mapping are
// carried as-is, so a Status may hold a value outside the closed set.
type Status string

const (
	StatusPrepare   Status = "Prepare"
	StatusReview    Status = "Review"
	StatusCompleted Status = "Completed"
	StatusRejected  Status = "Rejected"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsKnown reports whether the status belongs to the closed display set.
func (s Status) IsKnown() bool {
	switch s {
	case StatusPrepare, StatusReview, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the normal flow for the period.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Frequency is how often a record is reconciled
type Frequency string

const (
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
	FrequencyAnnual    Frequency = "Annual"
)

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// ReconciliationRecord is one reconciliation item after normalization.
type ReconciliationRecord struct {
	ID           string          `json:"id"`
	RecLiveID    int64           `json:"recLiveId,omitempty"`
	Priority     Priority        `json:"priority"`
	Status       Status          `json:"status"`
	StatusCode   string          `json:"statusCode,omitempty"`
	RiskRating   string          `json:"riskRating,omitempty"`
	DeadlineCode string          `json:"deadlineCode,omitempty"`
	PreparerName string          `json:"preparerName"`
	ReviewerName string          `json:"reviewerName"`
	Deadline     string          `json:"deadline"`
	Frequency    Frequency       `json:"frequency"`
	Locked       bool            `json:"locked"`
	Active       bool            `json:"active"`
	Overdue      bool            `json:"overdue"`
	AccountName  string          `json:"accountName"`
	AccountType  string          `json:"accountType"`
	Division     string          `json:"division"`
	CurrencyCode string          `json:"currencyCode"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    string          `json:"createdAt"`
	Period       string          `json:"period,omitempty"`
}

// Validate checks the record invariants that downstream code relies on
func (r *ReconciliationRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("reconciliation id cannot be empty")
	}
	if r.Status == "" {
		return fmt.Errorf("reconciliation %s has no status", r.ID)
	}
	return nil
}

// String returns a string representation of the record
func (r *ReconciliationRecord) String() string {
	return fmt.Sprintf("Reconciliation{ID: %s, Status: %s, Priority: %s, Deadline: %s}",
		r.ID, r.Status, r.Priority, r.Deadline)
}

// FindByID returns the record with the given display id.
func FindByID(records []*ReconciliationRecord, id string) (*ReconciliationRecord, bool) {
	id = strings.TrimSpace(id)
	for _, r := range records {
		if r != nil && r.ID == id {
			return r, true
		}
	}
	return nil, false
}
