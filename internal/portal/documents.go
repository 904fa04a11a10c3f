package portal

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

var (
	uploadHandlePaths  = []string{"uploadId", "upload_id", "data.uploadId", "data.upload_id", "handle", "id"}
	processHandlePaths = []string{"processId", "process_id", "data.processId", "data.process_id", "handle", "id"}
	failureFlagPaths   = []string{"success", "ok", "data.success"}
)

// Upload submits a workbook for a record and returns the opaque upload handle.
func (c *Client) Upload(ctx context.Context, recordID, fileName string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("reconciliationId", recordID); err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "upload", err)
	}
	part, err := form.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "upload", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "upload", err)
	}
	if err := form.Close(); err != nil {
		return "", errors.InternalError(errors.CodeUnexpectedError, "upload", err)
	}

	req := request{
		operation:   "upload_document",
		method:      http.MethodPost,
		path:        "/documents/upload",
		body:        &buf,
		contentType: form.FormDataContentType(),
	}
	return c.handleCall(ctx, req, uploadHandlePaths)
}

// Process submits an upload handle for server-side validation and returns the
// process handle. Validation failures carry diagnostics.
func (c *Client) Process(ctx context.Context, uploadHandle string) (string, error) {
	req, err := c.jsonRequest("process_document", http.MethodPost, "/documents/process",
		map[string]string{"uploadId": uploadHandle})
	if err != nil {
		return "", err
	}
	return c.handleCall(ctx, req, processHandlePaths)
}

// Publish commits a processed document.
func (c *Client) Publish(ctx context.Context, processHandle string) error {
	req, err := c.jsonRequest("publish_document", http.MethodPost, "/documents/publish",
		map[string]string{"processId": processHandle})
	if err != nil {
		return err
	}

	raw, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	return softFailure(req.method+" "+req.path, raw)
}

func (c *Client) handleCall(ctx context.Context, req request, handlePaths []string) (string, error) {
	endpoint := req.method + " " + req.path
	raw, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	if err := softFailure(endpoint, raw); err != nil {
		return "", err
	}

	handle, ok := raw.String(handlePaths...)
	if !ok {
		return "", errors.ServiceError(errors.CodeDecodeFailed, endpoint, http.StatusOK, "", nil).
			WithContext("reason", "response carries no handle")
	}
	return handle, nil
}

// softFailure turns a 2xx body that reports failure into a service error. The
// document processor answers some validation failures with 200 and a
// success=false payload.
func softFailure(endpoint string, raw models.RawRecord) error {
	failed := false
	if ok, found := raw.Bool(failureFlagPaths...); found && !ok {
		failed = true
	}
	if status, found := raw.String("status"); found && strings.EqualFold(status, "failed") {
		failed = true
	}

	diagnostics := decodeDiagnostics(raw)
	if !failed && diagnostics.IsEmpty() {
		return nil
	}

	svcErr := &ServiceError{
		Endpoint:    endpoint,
		StatusCode:  http.StatusOK,
		Message:     raw.StringOr("", messagePaths...),
		Diagnostics: diagnostics,
	}
	return errors.ServiceError(errors.CodeServiceError, endpoint, http.StatusOK, svcErr.Message, svcErr)
}
