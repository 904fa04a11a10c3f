// Package workflow implements the status transitions of a reconciliation record.
//
// A transition is validated locally first: request shape, the mandatory comment
// on rejection and the edge from the record's current status. Only then does
// the machine call the backend, persisting the comment before asking for the
// status change, and refresh the caller's view once both succeeded.
package workflow

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"golang-reconciliation-portal/internal/fieldmap"
	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/period"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// Backend is the part of the portal API a transition needs.
type Backend interface {
	AddComment(ctx context.Context, recLiveID int64, text string) error
	UpdateStatus(ctx context.Context, updates ...models.StatusUpdate) error
}

// Refresher reloads the record list and the commentary of recordID.
type Refresher interface {
	Refresh(ctx context.Context, recordID string) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context, recordID string) error

// Refresh calls f
func (f RefreshFunc) Refresh(ctx context.Context, recordID string) error {
	return f(ctx, recordID)
}

// Config configures a Machine.
type Config struct {
	// CurrentPeriod is sent when a record does not carry its own period.
	CurrentPeriod string
}

// Machine submits status transitions. It is safe for concurrent use; a second
// submission for a record that already has one in flight is refused.
type Machine struct {
	backend   Backend
	refresher Refresher
	config    Config
	validate  *validator.Validate
	log       logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewMachine creates a Machine. refresher may be nil.
func NewMachine(backend Backend, refresher Refresher, config Config, log logger.Logger) *Machine {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Machine{
		backend:   backend,
		refresher: refresher,
		config:    config,
		validate:  validator.New(),
		log:       log.WithComponent("workflow"),
		inFlight:  make(map[string]struct{}),
	}
}

// Allowed lists the transitions available from the record's current status.
func Allowed(record *models.ReconciliationRecord) []models.TargetStatus {
	if record == nil {
		return nil
	}
	switch record.Status {
	case models.StatusReview:
		return []models.TargetStatus{models.TargetApproved, models.TargetRejected}
	case models.StatusPrepare:
		return []models.TargetStatus{models.TargetReady}
	default:
		return nil
	}
}

// CanTransition reports whether record may move to target.
func CanTransition(record *models.ReconciliationRecord, target models.TargetStatus) error {
	if record == nil {
		return errors.ValidationError(errors.CodeMissingSelection, "reconciliation", "")
	}
	for _, allowed := range Allowed(record) {
		if allowed == target {
			return nil
		}
	}
	return errors.ValidationError(errors.CodeInvalidTransition, "targetStatus", target).
		WithContext("current_status", record.Status.String()).
		WithContext("record_id", record.ID)
}

// Busy reports whether a transition for recordID is in flight.
func (m *Machine) Busy(recordID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[recordID]
	return ok
}

// Submit moves record to req.TargetStatus. Validation failures are returned
// without any backend call. A failed comment or status step is returned as one
// transition failure; a refresh failure after a successful transition is
// reported with CodeRefreshFailed.
func (m *Machine) Submit(ctx context.Context, record *models.ReconciliationRecord, req models.StatusTransitionRequest) error {
	if record == nil {
		return errors.ValidationError(errors.CodeMissingSelection, "reconciliation", "")
	}
	if req.RecordID == "" {
		req.RecordID = record.ID
	}
	req.Comment = strings.TrimSpace(req.Comment)

	if err := m.Validate(req); err != nil {
		return err
	}
	if req.RecordID != record.ID {
		return errors.ValidationError(errors.CodeInvalidValue, "recordId", req.RecordID).
			WithContext("record_id", record.ID)
	}
	if err := CanTransition(record, req.TargetStatus); err != nil {
		return err
	}
	if req.Comment != "" && record.RecLiveID <= 0 {
		return errors.ValidationError(errors.CodeMissingField, "recLiveId", record.RecLiveID)
	}

	if !m.acquire(record.ID) {
		return errors.ValidationError(errors.CodeBusy, "status change for "+record.ID, record.ID)
	}
	defer m.release(record.ID)

	target := req.TargetStatus.String()
	op := logger.NewOperationLogger("status_transition", m.log).
		WithField("record_id", record.ID).
		WithField("from", record.Status.String()).
		WithField("to", target)

	if req.Comment != "" {
		if err := m.backend.AddComment(ctx, record.RecLiveID, req.Comment); err != nil {
			observeTransition(target, outcomeFailed)
			op.WithField("step", "comment").Failure(err, "Status transition failed")
			return transitionFailure(record.ID, "comment", err)
		}
	}

	update := models.StatusUpdate{
		ReconciliationID: record.ID,
		Status:           fieldmap.StatusCode(req.TargetStatus),
		CurrentPeriod:    m.periodOf(record),
	}
	if err := m.backend.UpdateStatus(ctx, update); err != nil {
		observeTransition(target, outcomeFailed)
		op.WithField("step", "status").Failure(err, "Status transition failed")
		return transitionFailure(record.ID, "status", err)
	}

	if m.refresher != nil {
		if err := m.refresher.Refresh(ctx, record.ID); err != nil {
			observeTransition(target, outcomeRefreshFailed)
			op.WithField("step", "refresh").Failure(err, "Status changed but refresh failed")
			return errors.InternalError(errors.CodeRefreshFailed, "status change of "+record.ID, err).
				WithContext("record_id", record.ID).
				WithSuggestion("reload the list to see the new status")
		}
	}

	observeTransition(target, outcomeSucceeded)
	op.Success("Status transition completed")
	return nil
}

// Validate checks a request without looking at the record.
func (m *Machine) Validate(req models.StatusTransitionRequest) error {
	if err := m.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			code := errors.CodeInvalidValue
			if fe.Tag() == "required" {
				code = errors.CodeMissingField
			}
			return errors.ValidationError(code, fe.Field(), fe.Value())
		}
		return errors.InternalError(errors.CodeUnexpectedError, "validate transition", err)
	}
	if req.TargetStatus == models.TargetRejected && strings.TrimSpace(req.Comment) == "" {
		return errors.ValidationError(errors.CodeMissingComment, "comment", "")
	}
	return nil
}

func (m *Machine) periodOf(record *models.ReconciliationRecord) string {
	p := record.Period
	if p == "" {
		p = m.config.CurrentPeriod
	}
	if p == "" {
		return ""
	}
	return period.ToCompact(p)
}

func (m *Machine) acquire(recordID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[recordID]; busy {
		return false
	}
	m.inFlight[recordID] = struct{}{}
	return true
}

func (m *Machine) release(recordID string) {
	m.mu.Lock()
	delete(m.inFlight, recordID)
	m.mu.Unlock()
}

func transitionFailure(recordID, step string, err error) error {
	return errors.InternalError(errors.CodeTransitionFailed, recordID, err).
		WithContext("step", step).
		WithContext("record_id", recordID)
}
