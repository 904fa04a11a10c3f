package ingestion

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

type fakeDocs struct {
	mu         sync.Mutex
	calls      []string
	uploaded   []byte
	uploadErr  error
	processErr error
	publishErr error
	gate       chan struct{}
	entered    chan struct{}
}

func (f *fakeDocs) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeDocs) Upload(ctx context.Context, recordID, fileName string, content io.Reader) (string, error) {
	f.record("upload:" + recordID + ":" + fileName)
	data, _ := io.ReadAll(content)
	f.mu.Lock()
	f.uploaded = data
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "up-1", nil
}

func (f *fakeDocs) Process(ctx context.Context, uploadHandle string) (string, error) {
	f.record("process:" + uploadHandle)
	if f.processErr != nil {
		return "", f.processErr
	}
	return "pr-1", nil
}

func (f *fakeDocs) Publish(ctx context.Context, processHandle string) error {
	f.record("publish:" + processHandle)
	return f.publishErr
}

func (f *fakeDocs) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type refreshRecorder struct {
	ids []string
	err error
}

func (r *refreshRecorder) Refresh(ctx context.Context, recordID string) error {
	r.ids = append(r.ids, recordID)
	return r.err
}

func fixedNow() time.Time {
	return time.Date(2025, 8, 5, 9, 0, 0, 0, time.UTC)
}

func phases(jobs []models.DocumentUploadJob) []models.Phase {
	out := make([]models.Phase, len(jobs))
	for i, j := range jobs {
		out[i] = j.Phase
	}
	return out
}

func workbook(t *testing.T, sheets ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheets[0]))
	for _, name := range sheets[1:] {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    models.Phase
		event   Event
		want    models.Phase
		wantErr bool
	}{
		{models.PhaseIdle, EventStart, models.PhaseUploading, false},
		{models.PhaseUploading, EventUploaded, models.PhaseProcessing, false},
		{models.PhaseProcessing, EventProcessed, models.PhasePublishing, false},
		{models.PhasePublishing, EventPublished, models.PhaseSucceeded, false},
		{models.PhaseIdle, EventFail, models.PhaseFailed, false},
		{models.PhaseUploading, EventFail, models.PhaseFailed, false},
		{models.PhasePublishing, EventFail, models.PhaseFailed, false},
		{models.PhaseSucceeded, EventReset, models.PhaseIdle, false},
		{models.PhaseFailed, EventReset, models.PhaseIdle, false},
		{models.PhaseIdle, EventProcessed, models.PhaseIdle, true},
		{models.PhaseUploading, EventPublished, models.PhaseUploading, true},
		{models.PhaseSucceeded, EventFail, models.PhaseSucceeded, true},
		{models.PhaseFailed, EventStart, models.PhaseFailed, true},
		{models.PhaseProcessing, EventReset, models.PhaseProcessing, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := transition(tt.from, tt.event)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun_Succeeds(t *testing.T) {
	docs := &fakeDocs{}
	refresher := &refreshRecorder{}
	p := NewPipeline(docs, refresher, Config{Now: fixedNow}, logger.Discard())

	var seen []models.DocumentUploadJob
	p.OnPhaseChange(func(job models.DocumentUploadJob) { seen = append(seen, job) })

	before := testutil.ToFloat64(runsTotal.WithLabelValues(outcomeSucceeded))

	job, err := p.Run(context.Background(), "R1", "/home/me/August Rec.XLSX", bytes.NewBufferString("book"))
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.PhaseSucceeded, job.Phase)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "August Rec.XLSX", job.FileName)
	assert.Equal(t, "up-1", job.UploadHandle)
	assert.Equal(t, "pr-1", job.ProcessHandle)
	assert.True(t, job.Diagnostics.IsEmpty())

	assert.Equal(t, []string{"upload:R1:August Rec.XLSX", "process:up-1", "publish:pr-1"}, docs.callLog())
	assert.Equal(t, "book", string(docs.uploaded))
	assert.Equal(t, []models.Phase{
		models.PhaseUploading, models.PhaseProcessing, models.PhasePublishing, models.PhaseSucceeded,
	}, phases(seen))
	require.Len(t, job.History, 4)
	assert.Equal(t, models.PhaseChange{From: models.PhaseIdle, To: models.PhaseUploading, At: fixedNow()}, job.History[0])
	assert.Equal(t, []string{"R1"}, refresher.ids)
	assert.False(t, p.Busy())

	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, job.ID, current.ID)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues(outcomeSucceeded)))
}

func TestRun_RejectsBadExtensionLocally(t *testing.T) {
	for _, name := range []string{"report.csv", "report.pdf", "report", "xlsx", "report.xlsx.bak"} {
		docs := &fakeDocs{}
		p := NewPipeline(docs, nil, Config{}, logger.Discard())

		job, err := p.Run(context.Background(), "R1", name, bytes.NewBufferString("x"))
		require.Error(t, err, name)
		assert.Nil(t, job)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidExtension), name)
		assert.Empty(t, docs.callLog(), name)
	}

	p := NewPipeline(&fakeDocs{}, nil, Config{}, logger.Discard())
	assert.NoError(t, p.ValidateExtension("legacy.XLS"))
	assert.NoError(t, p.ValidateExtension("book.xlsx"))
}

func TestRun_RequiresRecord(t *testing.T) {
	docs := &fakeDocs{}
	p := NewPipeline(docs, nil, Config{}, logger.Discard())

	_, err := p.Run(context.Background(), " ", "book.xlsx", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeMissingSelection))
	assert.Empty(t, docs.callLog())
}

func TestRun_UploadFailureStopsPipeline(t *testing.T) {
	docs := &fakeDocs{uploadErr: errors.NetworkError(errors.CodeConnectionFailed, "POST /documents/upload", nil)}
	refresher := &refreshRecorder{}
	p := NewPipeline(docs, refresher, Config{}, logger.Discard())

	job, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewBufferString("x"))
	require.Error(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.PhaseFailed, job.Phase)
	assert.Equal(t, models.PhaseUploading, job.FailedPhase)
	assert.Equal(t, []string{"upload:R1:book.xlsx"}, docs.callLog(), "process and publish are never called")
	assert.Empty(t, refresher.ids)
	assert.True(t, errors.HasCode(err, errors.CodeIngestionFailed))
	assert.True(t, errors.HasCode(err, errors.CodeConnectionFailed))
	assert.NotEmpty(t, job.Message)
}

func TestRun_ProcessFailureCarriesDiagnostics(t *testing.T) {
	diagnostics := models.Diagnostics{
		MissingSheets:    []string{"Summary"},
		ValidationErrors: []models.ColumnError{{Sheet: "Detail", Missing: []string{"Amount"}}},
		BusinessErrors:   []models.BusinessError{{Error: "Balance mismatch", Cell: "C4"}},
	}
	svcErr := &portal.ServiceError{
		Endpoint:    "POST /documents/process",
		StatusCode:  http.StatusUnprocessableEntity,
		Message:     "validation failed",
		Diagnostics: diagnostics,
	}
	docs := &fakeDocs{processErr: errors.ServiceError(errors.CodeServiceError, svcErr.Endpoint, svcErr.StatusCode, svcErr.Message, svcErr)}
	p := NewPipeline(docs, nil, Config{}, logger.Discard())

	job, err := p.Run(context.Background(), "R1", "book.xls", bytes.NewBufferString("x"))
	require.Error(t, err)

	assert.Equal(t, models.PhaseFailed, job.Phase)
	assert.Equal(t, models.PhaseProcessing, job.FailedPhase)
	assert.Equal(t, diagnostics, job.Diagnostics, "all three lists are preserved")
	assert.Equal(t, []string{"upload:R1:book.xls", "process:up-1"}, docs.callLog())

	pe, ok := errors.AsPortalError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryIngestion, pe.Category)
	assert.Equal(t, 3, pe.Context["diagnostics"])
}

func TestRun_PublishFailure(t *testing.T) {
	docs := &fakeDocs{publishErr: errors.SessionError(errors.CodeForbidden, "POST /documents/publish", nil)}
	p := NewPipeline(docs, nil, Config{}, logger.Discard())

	job, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.Equal(t, models.PhasePublishing, job.FailedPhase)
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
}

func TestRun_RefreshFailureAfterPublish(t *testing.T) {
	docs := &fakeDocs{}
	p := NewPipeline(docs, &refreshRecorder{err: assert.AnError}, Config{}, logger.Discard())

	job, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.Equal(t, models.PhaseSucceeded, job.Phase)
	assert.True(t, errors.HasCode(err, errors.CodeRefreshFailed))
}

func TestRun_RefusesConcurrentJob(t *testing.T) {
	docs := &fakeDocs{gate: make(chan struct{}), entered: make(chan struct{})}
	p := NewPipeline(docs, nil, Config{}, logger.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewBufferString("x"))
		done <- err
	}()

	select {
	case <-docs.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first job never started uploading")
	}
	assert.True(t, p.Busy())
	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, models.PhaseUploading, current.Phase)

	_, err := p.Run(context.Background(), "R2", "other.xlsx", bytes.NewBufferString("y"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeBusy))

	close(docs.gate)
	require.NoError(t, <-done)
	assert.False(t, p.Busy())
}

func TestRun_PreflightMissingSheets(t *testing.T) {
	docs := &fakeDocs{}
	p := NewPipeline(docs, nil, Config{RequiredSheets: []string{"Summary", "Detail", "Sign-off"}}, logger.Discard())

	var seen []models.DocumentUploadJob
	p.OnPhaseChange(func(job models.DocumentUploadJob) { seen = append(seen, job) })

	job, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewReader(workbook(t, "summary", "Notes")))
	require.Error(t, err)
	require.NotNil(t, job)

	assert.Equal(t, []string{"Detail", "Sign-off"}, job.Diagnostics.MissingSheets)
	assert.Equal(t, models.PhaseFailed, job.Phase)
	assert.Equal(t, models.PhaseIdle, job.FailedPhase)
	assert.Empty(t, docs.callLog())
	assert.Equal(t, []models.Phase{models.PhaseFailed}, phases(seen))
}

func TestRun_PreflightPassesContentThrough(t *testing.T) {
	book := workbook(t, "Summary", "Detail")
	docs := &fakeDocs{}
	p := NewPipeline(docs, nil, Config{RequiredSheets: []string{"Summary", "Detail"}}, logger.Discard())

	_, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewReader(book))
	require.NoError(t, err)
	assert.Equal(t, book, docs.uploaded)
}

func TestRun_PreflightUnreadableWorkbook(t *testing.T) {
	docs := &fakeDocs{}
	p := NewPipeline(docs, nil, Config{RequiredSheets: []string{"Summary"}}, logger.Discard())

	_, err := p.Run(context.Background(), "R1", "book.xlsx", bytes.NewBufferString("not a zip"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeWorkbookInvalid))
	assert.Empty(t, docs.callLog())
}

func TestRun_PreflightSkipsLegacyWorkbooks(t *testing.T) {
	docs := &fakeDocs{}
	p := NewPipeline(docs, nil, Config{RequiredSheets: []string{"Summary"}}, logger.Discard())

	_, err := p.Run(context.Background(), "R1", "book.xls", bytes.NewBufferString("binary"))
	require.NoError(t, err)
	assert.Len(t, docs.callLog(), 3)
}

func TestMissingSheets(t *testing.T) {
	assert.Nil(t, MissingSheets([]string{" Summary ", "DETAIL"}, []string{"summary", "Detail"}))
	assert.Equal(t, []string{"Detail"}, MissingSheets(nil, []string{"Detail"}))
}
