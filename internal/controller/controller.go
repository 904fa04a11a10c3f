// Package controller owns the record collection behind one reconciliation view.
//
// The controller fetches and normalizes the list, keeps the query state of the
// view, and answers View with the visible page. Fetches are numbered and only
// the latest one may replace the collection, so a slow response can never
// overwrite a newer one.
package controller

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/normalizer"
	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/internal/query"
	"golang-reconciliation-portal/pkg/debounce"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// ErrStale is returned by Fetch when a newer fetch started before this one
// finished. The collection is left untouched.
var ErrStale = stderrors.New("fetch superseded by a newer one")

// Source is the part of the portal API the controller reads from.
type Source interface {
	ListRecords(ctx context.Context, params portal.ListParams) (*portal.ListResult, error)
	ListComments(ctx context.Context, recLiveID int64) ([]models.CommentaryEntry, error)
	InvalidateComments(recLiveID int64)
	CurrentPeriod(ctx context.Context) (*models.PeriodInfo, error)
}

// Config configures a Controller.
type Config struct {
	// Period pins the list to one period. When empty the reconciliation period
	// of the portal is used.
	Period string
	Status string
	// FetchSize is the page size of the single list request.
	FetchSize int
	PageSize  int
	// SearchDebounce is the quiet period before typed search text is applied.
	SearchDebounce time.Duration
	SearchFields   []query.SearchField
	// RequestTimeout bounds the shared period lookup, which outlives any one caller.
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Controller is safe for concurrent use.
type Controller struct {
	source Source
	config Config
	engine *query.FilterEngine
	log    logger.Logger

	periods singleflight.Group
	search  *debounce.Debouncer[string]

	// updates serializes Update so fn runs without mu held.
	updates sync.Mutex

	mu         sync.RWMutex
	generation uint64
	records    []*models.ReconciliationRecord
	rejected   []normalizer.Rejection
	comments   map[string][]models.CommentaryEntry
	period     *models.PeriodInfo
	state      query.State
	listeners  []func(query.Page)
}

// New creates a Controller with an empty collection.
func New(source Source, config Config, log logger.Logger) *Controller {
	if config.FetchSize <= 0 {
		config.FetchSize = portal.DefaultFetchSize
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = portal.DefaultTimeout
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	c := &Controller{
		source:   source,
		config:   config,
		engine:   query.NewFilterEngine(query.NewSearchMatcher(config.SearchFields...)),
		log:      log.WithComponent("controller"),
		comments: make(map[string][]models.CommentaryEntry),
		state:    query.NewState(config.PageSize),
	}
	c.search = debounce.New(config.SearchDebounce, c.applySearch)
	return c
}

// Close drops a pending search.
func (c *Controller) Close() {
	c.search.Cancel()
}

// OnChange registers a listener called with the new page after every fetch
// and state change. Listeners must not call Update.
func (c *Controller) OnChange(fn func(query.Page)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// ResolvePeriod returns the portal's current period. Concurrent callers share
// one request and the answer is kept for the session.
func (c *Controller) ResolvePeriod(ctx context.Context) (*models.PeriodInfo, error) {
	c.mu.RLock()
	cached := c.period
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	ch := c.periods.DoChan("current-period", func() (interface{}, error) {
		// Shared by every waiter, so one caller giving up must not cancel it.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RequestTimeout)
		defer cancel()
		info, err := c.source.CurrentPeriod(shared)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.period = info
		c.mu.Unlock()
		return info, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.NetworkError(errors.CodeTimeout, "GET /periods/current", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.PeriodInfo), nil
	}
}

// Fetch loads the whole list and replaces the collection with it. It returns
// ErrStale when a newer fetch was started meanwhile.
func (c *Controller) Fetch(ctx context.Context) (*normalizer.Batch, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	period := c.config.Period
	if period == "" {
		info, err := c.ResolvePeriod(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Could not resolve current period, listing without one")
		} else {
			period = info.ReconciliationPeriod
			if period == "" {
				period = info.WorkingPeriod
			}
		}
	}

	result, err := c.source.ListRecords(ctx, portal.ListParams{
		Period:   period,
		Status:   c.config.Status,
		PageSize: c.config.FetchSize,
	})
	if err != nil {
		return nil, err
	}

	batch := normalizer.New(normalizer.Config{Now: c.config.Now, DefaultPeriod: period}, c.log).
		Normalize(result.Items)
	if result.TotalCount > len(result.Items) {
		c.log.WithFields(logger.Fields{
			"fetched": len(result.Items),
			"total":   result.TotalCount,
		}).Warn("List is larger than the fetch size; increase list.fetch_size to see every record")
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.WithField("generation", gen).Debug("Dropping stale list response")
		return batch, ErrStale
	}
	c.records = batch.Records
	c.rejected = batch.Rejected
	c.mu.Unlock()

	c.notify()
	return batch, nil
}

// Refresh reloads the list and, when recordID names a record with a
// commentary thread, that thread, in parallel.
func (c *Controller) Refresh(ctx context.Context, recordID string) error {
	var recLiveID int64
	if record, ok := c.Find(recordID); ok {
		recLiveID = record.RecLiveID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.Fetch(gctx)
		if stderrors.Is(err, ErrStale) {
			return nil
		}
		return err
	})
	if recLiveID > 0 {
		c.source.InvalidateComments(recLiveID)
		g.Go(func() error {
			_, err := c.loadComments(gctx, recordID, recLiveID)
			return err
		})
	}
	return g.Wait()
}

// Comments returns the commentary thread of a record.
func (c *Controller) Comments(ctx context.Context, recordID string) ([]models.CommentaryEntry, error) {
	record, ok := c.Find(recordID)
	if !ok {
		return nil, errors.ValidationError(errors.CodeMissingSelection, "reconciliation", recordID)
	}
	if record.RecLiveID <= 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "recLiveId", record.RecLiveID)
	}
	return c.loadComments(ctx, recordID, record.RecLiveID)
}

func (c *Controller) loadComments(ctx context.Context, recordID string, recLiveID int64) ([]models.CommentaryEntry, error) {
	thread, err := c.source.ListComments(ctx, recLiveID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.comments[recordID] = thread
	c.mu.Unlock()
	return thread, nil
}

// CachedComments returns the last thread loaded for a record.
func (c *Controller) CachedComments(recordID string) ([]models.CommentaryEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	thread, ok := c.comments[recordID]
	return thread, ok
}

// Records returns the current collection.
func (c *Controller) Records() []*models.ReconciliationRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*models.ReconciliationRecord(nil), c.records...)
}

// Rejected returns the items the last applied fetch could not normalize.
func (c *Controller) Rejected() []normalizer.Rejection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]normalizer.Rejection(nil), c.rejected...)
}

// Find returns the record with the given id.
func (c *Controller) Find(id string) (*models.ReconciliationRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.FindByID(c.records, id)
}

// State returns the query state of the view.
func (c *Controller) State() query.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// View returns the visible page.
func (c *Controller) View() query.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return query.ApplyWith(c.engine, c.records, c.state)
}

// Update replaces the query state with fn applied to it and returns the new page.
// fn runs without the collection locked and may read from the controller, but
// must not call Update.
func (c *Controller) Update(fn func(query.State) query.State) query.Page {
	c.updates.Lock()
	defer c.updates.Unlock()

	next := fn(c.State())
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	return c.notify()
}

// Search records typed search text. It is applied once typing pauses for the
// debounce window, or immediately by FlushSearch.
func (c *Controller) Search(text string) {
	c.search.Push(text)
}

// FlushSearch applies pending search text now and reports whether there was any.
func (c *Controller) FlushSearch() bool {
	return c.search.Flush()
}

func (c *Controller) applySearch(text string) {
	c.Update(func(s query.State) query.State { return s.SetSearch(text) })
}

func (c *Controller) notify() query.Page {
	c.mu.RLock()
	page := query.ApplyWith(c.engine, c.records, c.state)
	listeners := make([]func(query.Page), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(page)
	}
	return page
}
