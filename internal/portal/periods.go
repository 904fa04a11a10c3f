package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

// CurrentPeriod returns the working and reconciliation periods with their deadlines.
func (c *Client) CurrentPeriod(ctx context.Context) (*models.PeriodInfo, error) {
	raw, err := c.do(ctx, request{
		operation: "current_period",
		method:    http.MethodGet,
		path:      "/periods/current",
	})
	if err != nil {
		return nil, err
	}
	if data, ok := raw.Object("data"); ok {
		raw = data
	}

	info := &models.PeriodInfo{
		WorkingPeriod:        raw.StringOr("", "workingPeriod", "working_period", "currentPeriod", "current_period"),
		ReconciliationPeriod: raw.StringOr("", "reconciliationPeriod", "reconciliation_period", "recPeriod"),
		Deadlines:            map[string]string{},
	}
	if deadlines, ok := raw.Object("deadlines"); ok {
		for key := range deadlines {
			if v, ok := deadlines.String(key); ok {
				info.Deadlines[key] = v
			}
		}
	}
	if info.WorkingPeriod == "" && info.ReconciliationPeriod == "" {
		return nil, errors.ServiceError(errors.CodeDecodeFailed, "GET /periods/current", http.StatusOK, "", nil).
			WithContext("reason", "response carries no period")
	}
	return info, nil
}

// ExportParams selects the records of a report export.
type ExportParams struct {
	UserID string
	Role   string
	Period string
	Status string
}

// Export streams the report spreadsheet into w and returns the number of bytes written.
func (c *Client) Export(ctx context.Context, params ExportParams, w io.Writer) (int64, error) {
	if params.UserID == "" {
		params.UserID = c.userID
	}
	if params.Role == "" {
		params.Role = c.role
	}
	query := url.Values{}
	setIfNotEmpty(query, "userId", params.UserID)
	setIfNotEmpty(query, "role", params.Role)
	setIfNotEmpty(query, "period", params.Period)
	setIfNotEmpty(query, "status", params.Status)

	req := request{
		operation: "export_report",
		method:    http.MethodGet,
		path:      "/reports/export",
		query:     query,
		accept:    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/octet-stream",
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.NetworkError(errors.CodeConnectionFailed, req.method+" "+req.path,
			fmt.Errorf("stream interrupted after %d bytes: %w", n, err))
	}
	return n, nil
}
