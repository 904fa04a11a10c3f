package portal

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/logger"
)

// DefaultFetchSize is the page size used to fetch a whole list in one call.
// Views paginate client-side, so the realistic dataset is thousands of records.
const DefaultFetchSize = 1000

// ListParams selects the reconciliations of one user, role and period.
type ListParams struct {
	UserID   string
	Role     string
	Period   string
	Status   string
	Page     int
	PageSize int
}

// ListResult is one list response. TotalCount is -1 when the API omits it.
type ListResult struct {
	Items      []models.RawRecord
	TotalCount int
}

var (
	listItemPaths  = []string{"items", "data.items", "data", "reconciliations", "results"}
	listTotalPaths = []string{"totalCount", "total_count", "total", "data.totalCount", "data.total_count"}
)

// ListRecords fetches reconciliation items as raw payloads. Missing user and
// role parameters default to the session's.
func (c *Client) ListRecords(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == "" {
		params.UserID = c.userID
	}
	if params.Role == "" {
		params.Role = c.role
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultFetchSize
	}

	query := url.Values{}
	setIfNotEmpty(query, "userId", params.UserID)
	setIfNotEmpty(query, "role", params.Role)
	setIfNotEmpty(query, "period", params.Period)
	setIfNotEmpty(query, "status", params.Status)
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("pageSize", strconv.Itoa(params.PageSize))

	raw, err := c.do(ctx, request{
		operation: "list_records",
		method:    http.MethodGet,
		path:      "/reconciliations",
		query:     query,
	})
	if err != nil {
		return nil, err
	}

	result := &ListResult{TotalCount: -1}
	for _, p := range listItemPaths {
		if list, ok := raw.List(p); ok {
			result.Items = itemList(list)
			break
		}
	}
	if result.Items == nil {
		result.Items = []models.RawRecord{}
	}
	if total, ok := raw.Int64(listTotalPaths...); ok {
		result.TotalCount = int(total)
	}

	c.log.WithFields(logger.Fields{
		"items": len(result.Items),
		"total": result.TotalCount,
	}).Debug("Fetched reconciliation list")
	return result, nil
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
