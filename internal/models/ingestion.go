package models

import (
	"time"
)

// Phase is the state of a document upload job
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseUploading  Phase = "UPLOADING"
	PhaseProcessing Phase = "PROCESSING"
	PhasePublishing Phase = "PUBLISHING"
	PhaseSucceeded  Phase = "SUCCEEDED"
	PhaseFailed     Phase = "FAILED"
)

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// IsActive reports whether a remote call is in flight in this phase.
func (p Phase) IsActive() bool {
	return p == PhaseUploading || p == PhaseProcessing || p == PhasePublishing
}

// IsTerminal reports whether the job has finished.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// ColumnError lists the columns missing from one sheet
type ColumnError struct {
	Sheet   string   `json:"sheet"`
	Missing []string `json:"missing"`
}

// BusinessError is one business rule violation reported by the processor
type BusinessError struct {
	Error  string `json:"error"`
	Sheet  string `json:"sheet,omitempty"`
	Cell   string `json:"cell,omitempty"`
	Value  string `json:"value,omitempty"`
	Action string `json:"action,omitempty"`
}

// Diagnostics is the partial-failure report of an ingestion phase. The three
// lists are independent and any combination of them may be populated.
type Diagnostics struct {
	MissingSheets    []string        `json:"missingSheets"`
	ValidationErrors []ColumnError   `json:"validationErrors"`
	BusinessErrors   []BusinessError `json:"businessErrors"`
}

// IsEmpty reports whether no diagnostic was reported
func (d Diagnostics) IsEmpty() bool {
	return len(d.MissingSheets) == 0 && len(d.ValidationErrors) == 0 && len(d.BusinessErrors) == 0
}

// Count returns the total number of reported issues
func (d Diagnostics) Count() int {
	return len(d.MissingSheets) + len(d.ValidationErrors) + len(d.BusinessErrors)
}

// PhaseChange records one transition of an upload job
type PhaseChange struct {
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
	At   time.Time `json:"at"`
}

// DocumentUploadJob lives for one upload interaction and is discarded after a terminal phase.
type DocumentUploadJob struct {
	ID            string        `json:"id"`
	RecordID      string        `json:"recordId"`
	FileName      string        `json:"fileName"`
	Phase         Phase         `json:"phase"`
	UploadHandle  string        `json:"uploadHandle,omitempty"`
	ProcessHandle string        `json:"processHandle,omitempty"`
	Diagnostics   Diagnostics   `json:"diagnostics"`
	FailedPhase   Phase         `json:"failedPhase,omitempty"`
	Message       string        `json:"message,omitempty"`
	History       []PhaseChange `json:"history"`
}
