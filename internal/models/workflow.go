package models

import (
	"time"
)

// CommentaryEntry is one comment in a record's thread
type CommentaryEntry struct {
	CommentID  string    `json:"commentId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TargetStatus is the backend status a transition asks for
type TargetStatus string

const (
	TargetApproved TargetStatus = "APPROVED"
	TargetRejected TargetStatus = "REJECTED"
	TargetReady    TargetStatus = "READY"
)

// String returns the string representation of TargetStatus
func (t TargetStatus) String() string {
	return string(t)
}

// StatusTransitionRequest asks for a record to move to a new status.
// Comment is mandatory when TargetStatus is REJECTED.
type StatusTransitionRequest struct {
	RecordID     string       `json:"recordId" validate:"required"`
	TargetStatus TargetStatus `json:"targetStatus" validate:"required,oneof=APPROVED REJECTED READY"`
	Comment      string       `json:"comment,omitempty" validate:"max=4000"`
}

// StatusUpdate is one element of the status endpoint payload
type StatusUpdate struct {
	UserID           string `json:"userId"`
	ReconciliationID string `json:"reconciliation_id"`
	Status           string `json:"status"`
	CurrentPeriod    string `json:"current_period"`
}
