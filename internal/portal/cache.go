package portal

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"golang-reconciliation-portal/internal/models"
)

// commentCache keeps commentary threads per recLiveId for the current session.
type commentCache struct {
	lru *expirable.LRU[int64, []models.CommentaryEntry]
}

func newCommentCache(size int, ttl time.Duration) *commentCache {
	if size <= 0 {
		size = DefaultCommentCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCommentCacheTTL
	}
	return &commentCache{lru: expirable.NewLRU[int64, []models.CommentaryEntry](size, nil, ttl)}
}

func (c *commentCache) get(recLiveID int64) ([]models.CommentaryEntry, bool) {
	thread, ok := c.lru.Get(recLiveID)
	if !ok {
		commentCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	commentCacheLookups.WithLabelValues("hit").Inc()
	return append([]models.CommentaryEntry(nil), thread...), true
}

func (c *commentCache) set(recLiveID int64, thread []models.CommentaryEntry) {
	c.lru.Add(recLiveID, append([]models.CommentaryEntry(nil), thread...))
}

func (c *commentCache) invalidate(recLiveID int64) {
	c.lru.Remove(recLiveID)
}

func (c *commentCache) purge() {
	c.lru.Purge()
}
