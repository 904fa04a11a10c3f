package portal

import (
	"context"
	"net/http"
	"strings"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

// UpdateStatus requests status changes. Updates without a user id are sent on
// behalf of the session user.
func (c *Client) UpdateStatus(ctx context.Context, updates ...models.StatusUpdate) error {
	if len(updates) == 0 {
		return errors.ValidationError(errors.CodeMissingSelection, "reconciliation", "")
	}

	payload := make([]models.StatusUpdate, len(updates))
	for i, u := range updates {
		if u.UserID == "" {
			u.UserID = c.userID
		}
		if u.UserID == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, "user.id", "", nil)
		}
		if strings.TrimSpace(u.ReconciliationID) == "" {
			return errors.ValidationError(errors.CodeMissingField, "reconciliation_id", u.ReconciliationID)
		}
		payload[i] = u
	}

	req, err := c.jsonRequest("update_status", http.MethodPost, "/reconciliations/status",
		map[string]interface{}{"statusUpdates": payload})
	if err != nil {
		return err
	}

	raw, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	return softFailure(req.method+" "+req.path, raw)
}
