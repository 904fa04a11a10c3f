// Package ingestion runs the three-phase document upload of a reconciliation:
// upload the workbook, have the portal process it, then publish the result.
//
// Phases run strictly in sequence and a failure in one of them aborts the
// rest. The failure payload's diagnostics are carried on the job verbatim.
package ingestion

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// DocumentService is the document half of the portal API.
type DocumentService interface {
	Upload(ctx context.Context, recordID, fileName string, content io.Reader) (string, error)
	Process(ctx context.Context, uploadHandle string) (string, error)
	Publish(ctx context.Context, processHandle string) error
}

// Refresher reloads the record list and the commentary of recordID.
type Refresher interface {
	Refresh(ctx context.Context, recordID string) error
}

// PhaseCallback receives a snapshot of the job after every phase change.
type PhaseCallback func(job models.DocumentUploadJob)

// DefaultExtensions are the workbook types the portal accepts.
var DefaultExtensions = []string{".xls", ".xlsx"}

// Config configures a Pipeline.
type Config struct {
	// Extensions overrides DefaultExtensions. Matching is case-insensitive.
	Extensions []string
	// RequiredSheets, when set, are checked locally in .xlsx workbooks before upload.
	RequiredSheets []string
	// Now stamps phase changes. Defaults to time.Now.
	Now func() time.Time
}

// Pipeline runs one upload job at a time.
type Pipeline struct {
	docs      DocumentService
	refresher Refresher
	config    Config
	log       logger.Logger

	running atomic.Bool

	mu        sync.RWMutex
	current   *models.DocumentUploadJob
	callbacks []PhaseCallback
}

// NewPipeline creates a Pipeline. refresher may be nil.
func NewPipeline(docs DocumentService, refresher Refresher, config Config, log logger.Logger) *Pipeline {
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultExtensions
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Pipeline{
		docs:      docs,
		refresher: refresher,
		config:    config,
		log:       log.WithComponent("ingestion"),
	}
}

// OnPhaseChange registers a callback. Callbacks run synchronously on the
// goroutine that called Run.
func (p *Pipeline) OnPhaseChange(cb PhaseCallback) {
	if cb == nil {
		return
	}
	p.mu.Lock()
	p.callbacks = append(p.callbacks, cb)
	p.mu.Unlock()
}

// Busy reports whether a job is in flight.
func (p *Pipeline) Busy() bool {
	return p.running.Load()
}

// Current returns a snapshot of the latest job.
func (p *Pipeline) Current() (models.DocumentUploadJob, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return models.DocumentUploadJob{}, false
	}
	return snapshot(p.current), true
}

// ValidateExtension checks the file type before anything is sent.
func (p *Pipeline) ValidateExtension(fileName string) error {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	for _, allowed := range p.config.Extensions {
		if ext != "" && ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return errors.ValidationError(errors.CodeInvalidExtension, "file", filepath.Base(fileName))
}

// Run uploads, processes and publishes one workbook for recordID. The returned
// job is never nil once local validation passed, including on failure.
func (p *Pipeline) Run(ctx context.Context, recordID, fileName string, content io.Reader) (*models.DocumentUploadJob, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, errors.ValidationError(errors.CodeMissingSelection, "reconciliation", "")
	}
	if err := p.ValidateExtension(fileName); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "file", fileName)
	}
	if !p.running.CompareAndSwap(false, true) {
		return nil, errors.ValidationError(errors.CodeBusy, "document upload", fileName)
	}
	defer p.running.Store(false)

	job := &models.DocumentUploadJob{
		ID:       uuid.NewString(),
		RecordID: recordID,
		FileName: filepath.Base(fileName),
		Phase:    models.PhaseIdle,
	}
	p.mu.Lock()
	p.current = job
	p.mu.Unlock()

	op := logger.NewOperationLogger("document_ingestion", p.log).
		WithField("job_id", job.ID).
		WithField("record_id", recordID).
		WithField("file", job.FileName)

	content, err := p.preflight(job, content)
	if err != nil {
		op.Failure(err, "Workbook rejected before upload")
		return job, err
	}

	if err := p.advance(job, EventStart); err != nil {
		return job, err
	}
	uploadHandle, err := p.docs.Upload(ctx, recordID, job.FileName, content)
	p.update(func() { job.UploadHandle = uploadHandle })
	if err != nil {
		err = p.fail(job, err)
		op.Failure(err, "Upload failed")
		return job, err
	}

	if err := p.advance(job, EventUploaded); err != nil {
		return job, err
	}
	processHandle, err := p.docs.Process(ctx, uploadHandle)
	p.update(func() { job.ProcessHandle = processHandle })
	if err != nil {
		err = p.fail(job, err)
		op.WithField("diagnostics", job.Diagnostics.Count()).Failure(err, "Processing failed")
		return job, err
	}

	if err := p.advance(job, EventProcessed); err != nil {
		return job, err
	}
	if err := p.docs.Publish(ctx, processHandle); err != nil {
		err = p.fail(job, err)
		op.Failure(err, "Publish failed")
		return job, err
	}

	if err := p.advance(job, EventPublished); err != nil {
		return job, err
	}
	observeRun(outcomeSucceeded)
	op.Success("Document published")

	if p.refresher != nil {
		if err := p.refresher.Refresh(ctx, recordID); err != nil {
			p.log.WithError(err).WithField("record_id", recordID).Warn("Refresh after upload failed")
			return job, errors.InternalError(errors.CodeRefreshFailed, "document upload", err).
				WithContext("job_id", job.ID).
				WithSuggestion("reload the list to see the published document")
		}
	}
	return job, nil
}

// preflight checks required sheets of an .xlsx workbook locally and returns a
// reader positioned at the start of the content.
func (p *Pipeline) preflight(job *models.DocumentUploadJob, content io.Reader) (io.Reader, error) {
	if len(p.config.RequiredSheets) == 0 || !strings.EqualFold(filepath.Ext(job.FileName), ".xlsx") {
		return content, nil
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, p.failLocal(job, errors.IngestionError(errors.CodeWorkbookInvalid, models.PhaseIdle.String(), err))
	}

	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, p.failLocal(job, errors.IngestionError(errors.CodeWorkbookInvalid, models.PhaseIdle.String(), err))
	}
	defer book.Close()

	missing := MissingSheets(book.GetSheetList(), p.config.RequiredSheets)
	if len(missing) > 0 {
		p.update(func() { job.Diagnostics.MissingSheets = missing })
		return nil, p.failLocal(job, errors.IngestionError(errors.CodeIngestionFailed, "validation", nil).
			WithContext("missing_sheets", missing))
	}
	return bytes.NewReader(data), nil
}

// MissingSheets returns the required sheets absent from present, compared
// trimmed and case-insensitively, in required order.
func MissingSheets(present, required []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, name := range present {
		have[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[strings.ToLower(strings.TrimSpace(name))]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p *Pipeline) advance(job *models.DocumentUploadJob, ev Event) error {
	next, err := transition(job.Phase, ev)
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "document ingestion", err).
			WithContext("job_id", job.ID)
	}

	p.mu.Lock()
	job.History = append(job.History, models.PhaseChange{From: job.Phase, To: next, At: p.config.Now()})
	job.Phase = next
	callbacks := append([]PhaseCallback(nil), p.callbacks...)
	snap := snapshot(job)
	p.mu.Unlock()

	observePhase(next)
	p.log.WithFields(logger.Fields{
		"job_id": job.ID,
		"phase":  next.String(),
	}).Debug("Ingestion phase changed")

	for _, cb := range callbacks {
		cb(snap)
	}
	return nil
}

// fail records a remote failure on the job and wraps it for the caller.
func (p *Pipeline) fail(job *models.DocumentUploadJob, cause error) error {
	failed := job.Phase
	p.update(func() { job.Diagnostics = portal.DiagnosticsOf(cause) })
	err := errors.IngestionError(errors.CodeIngestionFailed, failed.String(), cause).
		WithContext("job_id", job.ID).
		WithContext("diagnostics", job.Diagnostics.Count())
	return p.failLocal(job, err)
}

func (p *Pipeline) failLocal(job *models.DocumentUploadJob, err *errors.PortalError) error {
	p.update(func() {
		job.FailedPhase = job.Phase
		job.Message = err.Error()
	})
	if advanceErr := p.advance(job, EventFail); advanceErr != nil {
		return advanceErr
	}
	observeRun(outcomeFailed)
	return err
}

// update mutates the current job under the lock Current reads with.
func (p *Pipeline) update(fn func()) {
	p.mu.Lock()
	fn()
	p.mu.Unlock()
}

func snapshot(job *models.DocumentUploadJob) models.DocumentUploadJob {
	snap := *job
	snap.History = append([]models.PhaseChange(nil), job.History...)
	return snap
}
