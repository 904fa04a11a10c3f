package portal

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/period"
	"golang-reconciliation-portal/pkg/errors"
)

var (
	commentListPaths = []string{"items", "comments", "commentary", "data", "data.items"}
	commentIDPaths   = []string{"commentId", "comment_id", "id"}
	authorPaths      = []string{"authorName", "author_name", "author.name", "createdBy", "created_by", "userName"}
	textPaths        = []string{"text", "comment", "content", "body"}
	commentTimePaths = []string{"createdAt", "created_at", "timestamp", "date"}
)

// ListComments returns the commentary thread of a record, oldest first.
// Threads are served from the session cache until they expire or are invalidated.
func (c *Client) ListComments(ctx context.Context, recLiveID int64) ([]models.CommentaryEntry, error) {
	if recLiveID <= 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "recLiveId", recLiveID)
	}
	if thread, ok := c.comments.get(recLiveID); ok {
		return thread, nil
	}

	raw, err := c.do(ctx, request{
		operation: "list_comments",
		method:    http.MethodGet,
		path:      "/commentary/" + pathEscapeInt(recLiveID),
	})
	if err != nil {
		return nil, err
	}

	var thread []models.CommentaryEntry
	for _, p := range commentListPaths {
		list, ok := raw.List(p)
		if !ok {
			continue
		}
		for _, item := range itemList(list) {
			if item == nil {
				continue
			}
			thread = append(thread, decodeComment(item))
		}
		break
	}
	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].CreatedAt.Before(thread[j].CreatedAt)
	})

	c.comments.set(recLiveID, thread)
	return thread, nil
}

// AddComment appends a comment to a record's thread.
func (c *Client) AddComment(ctx context.Context, recLiveID int64, text string) error {
	text = strings.TrimSpace(text)
	if recLiveID <= 0 {
		return errors.ValidationError(errors.CodeMissingField, "recLiveId", recLiveID)
	}
	if text == "" {
		return errors.ValidationError(errors.CodeMissingField, "comment", text)
	}

	req, err := c.jsonRequest("add_comment", http.MethodPost, "/commentary/"+pathEscapeInt(recLiveID),
		map[string]string{"comment": text})
	if err != nil {
		return err
	}
	defer c.comments.invalidate(recLiveID)

	_, err = c.do(ctx, req)
	return err
}

// DeleteComment removes one comment. recLiveID identifies the thread to invalidate.
func (c *Client) DeleteComment(ctx context.Context, recLiveID int64, commentID string) error {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return errors.ValidationError(errors.CodeMissingSelection, "comment", commentID)
	}
	defer c.comments.invalidate(recLiveID)

	_, err := c.do(ctx, request{
		operation: "delete_comment",
		method:    http.MethodDelete,
		path:      "/commentary/entries/" + url.PathEscape(commentID),
	})
	return err
}

// InvalidateComments drops the cached thread of a record.
func (c *Client) InvalidateComments(recLiveID int64) {
	c.comments.invalidate(recLiveID)
}

// InvalidateAllComments drops every cached thread.
func (c *Client) InvalidateAllComments() {
	c.comments.purge()
}

func decodeComment(raw models.RawRecord) models.CommentaryEntry {
	entry := models.CommentaryEntry{
		CommentID:  raw.StringOr("", commentIDPaths...),
		AuthorName: raw.StringOr("", authorPaths...),
		Text:       raw.StringOr("", textPaths...),
	}
	if ts, ok := raw.String(commentTimePaths...); ok {
		entry.CreatedAt = parseTimestamp(ts)
	}
	return entry
}

// parseTimestamp keeps the time of day when the value carries one.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if t, ok := period.ParseDate(s); ok {
		return t
	}
	return time.Time{}
}
