// Package portal is the HTTP client of the reconciliation portal API.
//
// Every call takes a context, carries the bearer session token and an
// X-Request-ID, and maps failures onto pkg/errors: transport failures are
// network errors, 401 and 403 are session errors, and any other non-2xx
// response is a service error wrapping a *ServiceError with the decoded
// diagnostics.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

const (
	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 30 * time.Second
	// DefaultCommentCacheSize is the number of commentary threads kept per session.
	DefaultCommentCacheSize = 256
	// DefaultCommentCacheTTL is how long a cached thread stays valid.
	DefaultCommentCacheTTL = 2 * time.Minute

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 1 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL          string
	Token            string
	UserID           string
	Role             string
	Timeout          time.Duration
	CommentCacheSize int
	CommentCacheTTL  time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the portal API on behalf of one session.
type Client struct {
	baseURL  *url.URL
	token    string
	userID   string
	role     string
	http     *http.Client
	comments *commentCache
	log      logger.Logger
}

// New creates a Client. The user id falls back to the session token's claims
// when it is not configured.
func New(config Config, log logger.Logger) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "api.base_url", "", nil)
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(config.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "api.base_url", config.BaseURL, err)
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("portal")

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	userID := strings.TrimSpace(config.UserID)
	if userID == "" && config.Token != "" {
		if fromToken, err := UserIDFromToken(config.Token); err == nil {
			userID = fromToken
		} else {
			log.WithError(err).Debug("Could not read user id from session token")
		}
	}

	return &Client{
		baseURL:  base,
		token:    config.Token,
		userID:   userID,
		role:     config.Role,
		http:     httpClient,
		comments: newCommentCache(config.CommentCacheSize, config.CommentCacheTTL),
		log:      log,
	}, nil
}

// UserID returns the id used in status updates and list queries
func (c *Client) UserID() string {
	return c.userID
}

// Role returns the configured portal role
func (c *Client) Role() string {
	return c.role
}

// request describes one API call.
type request struct {
	operation   string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

func (c *Client) jsonRequest(operation, method, path string, payload interface{}) (request, error) {
	req := request{operation: operation, method: method, path: path}
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return req, errors.InternalError(errors.CodeUnexpectedError, operation, err)
		}
		req.body = bytes.NewReader(buf)
		req.contentType = "application/json"
	}
	return req, nil
}

// send performs req and returns the response of a 2xx call. The caller must
// close the body.
func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	endpoint := req.method + " " + req.path
	op := logger.NewOperationLogger(req.operation, c.log).WithField("endpoint", endpoint)

	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + req.path
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), req.body)
	if err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, req.operation, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	op.WithField("request_id", requestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		observeRequest(req.operation, outcomeTransport)
		op.Failure(err, "Request failed")
		return nil, transportError(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		observeRequest(req.operation, outcomeOf(resp.StatusCode))
		failure := classifyStatus(endpoint, resp.StatusCode, body)
		op.WithField("status", resp.StatusCode).Failure(failure, "Request rejected")
		return nil, failure
	}

	observeRequest(req.operation, outcomeSuccess)
	op.WithField("status", resp.StatusCode).Success("Request completed")
	return resp, nil
}

// do performs req and decodes a JSON object response into a RawRecord. An
// empty body yields an empty record.
func (c *Client) do(ctx context.Context, req request) (models.RawRecord, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	value, err := decodeBody(resp.Body)
	if err != nil {
		return nil, errors.ServiceError(errors.CodeDecodeFailed, req.method+" "+req.path, resp.StatusCode, "", err)
	}
	switch v := value.(type) {
	case nil:
		return models.RawRecord{}, nil
	case map[string]interface{}:
		return models.RawRecord(v), nil
	case []interface{}:
		return models.RawRecord{"items": v}, nil
	default:
		return models.RawRecord{"value": v}, nil
	}
}

// decodeBody decodes any JSON value with exact numbers. An empty body is nil.
func decodeBody(r io.Reader) (interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func transportError(endpoint string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NetworkError(errors.CodeTimeout, endpoint, err)
	}
	return errors.NetworkError(errors.CodeConnectionFailed, endpoint, err)
}

// itemList converts a JSON array into raw records. Elements that are not
// objects become nil records so the normalizer can report them by index.
func itemList(list []interface{}) []models.RawRecord {
	items := make([]models.RawRecord, len(list))
	for i, v := range list {
		if obj, ok := v.(map[string]interface{}); ok {
			items[i] = models.RawRecord(obj)
		}
	}
	return items
}

func pathEscapeInt(id int64) string {
	return url.PathEscape(fmt.Sprintf("%d", id))
}
