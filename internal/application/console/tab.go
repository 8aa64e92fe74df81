package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/application/collection"
	"github.com/sparknexora/backoffice/internal/application/notify"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
)

// TabName identifies a resource tab
type TabName string

const (
	TabContacts TabName = "contacts"
	TabPayments TabName = "payments"
)

// State of a tab
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateReady           State = "ready"
	StateError           State = "error"
)

// Fetcher reads pages of one collection
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, f collection.Filter, page, pageSize int) (collection.Page[T], error)
}

// View is a point-in-time copy of a tab
type View[T any] struct {
	Tab        TabName             `json:"tab"`
	State      State               `json:"state"`
	Filter     collection.Filter   `json:"filter"`
	Items      []T                 `json:"items"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
	Total      int                 `json:"total"`
	Summary    *collection.Summary `json:"summary,omitempty"`
	Error      string              `json:"error,omitempty"`
	UpdatedAt  *time.Time          `json:"updatedAt,omitempty"`
}

// host is what a tab needs from the console around it
type host interface {
	generation() uint64
	active() (bool, uint64)
	unauthorized(ctx context.Context, gen uint64)
}

// Tab holds the list state of one collection. Its lock is never held
// across a backend call; each fetch carries a sequence number and only the
// latest one may change the tab.
type Tab[T any] struct {
	name     TabName
	label    string
	fetcher  Fetcher[T]
	pageSize int
	host     host
	notify   *notify.Queue
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	seq        uint64
	state      State
	filter     collection.Filter
	items      []T
	page       int
	totalPages int
	total      int
	summary    *collection.Summary
	errMsg     string
	updatedAt  time.Time
}

func newTab[T any](name TabName, label string, f Fetcher[T], pageSize int, h host, q *notify.Queue, m *metrics.Metrics, log *zap.Logger) *Tab[T] {
	return &Tab[T]{
		name:       name,
		label:      label,
		fetcher:    f,
		pageSize:   pageSize,
		host:       h,
		notify:     q,
		metrics:    m,
		logger:     log.With(zap.String("tab", string(name))),
		now:        time.Now,
		state:      StateUnauthenticated,
		page:       1,
		totalPages: 1,
	}
}

// Name of the tab
func (t *Tab[T]) Name() TabName { return t.name }

// View returns a copy of the current tab state
func (t *Tab[T]) View() View[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

func (t *Tab[T]) viewLocked() View[T] {
	v := View[T]{
		Tab:        t.name,
		State:      t.state,
		Filter:     t.filter,
		Items:      append(make([]T, 0, len(t.items)), t.items...),
		Page:       t.page,
		TotalPages: t.totalPages,
		Total:      t.total,
		Summary:    t.summary,
		Error:      t.errMsg,
	}
	if !t.updatedAt.IsZero() {
		at := t.updatedAt
		v.UpdatedAt = &at
	}
	return v
}

// reset discards everything and supersedes any fetch in flight
func (t *Tab[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.state = StateUnauthenticated
	t.filter = collection.Filter{}
	t.items = nil
	t.page = 1
	t.totalPages = 1
	t.total = 0
	t.summary = nil
	t.errMsg = ""
	t.updatedAt = time.Time{}
}

// SetFilters replaces the filter set. A change resets to page 1 and hides
// the old items until the new page arrives.
func (t *Tab[T]) SetFilters(ctx context.Context, f collection.Filter) (View[T], error) {
	f = f.Normalize()
	return t.load(ctx, func() {
		if f == t.filter {
			return
		}
		t.filter = f
		t.page = 1
		t.totalPages = 1
		t.total = 0
		t.items = nil
		t.summary = nil
	})
}

// ClearFilters drops every filter
func (t *Tab[T]) ClearFilters(ctx context.Context) (View[T], error) {
	return t.SetFilters(ctx, collection.Filter{})
}

// GoToPage fetches page n under the current filters
func (t *Tab[T]) GoToPage(ctx context.Context, n int) (View[T], error) {
	t.mu.Lock()
	known := t.totalPages
	loaded := t.state == StateReady
	t.mu.Unlock()

	if n < 1 || (loaded && n > known) {
		return t.View(), fmt.Errorf("%w: page %d of %d", ErrInvalidPage, n, known)
	}
	return t.load(ctx, func() { t.page = n })
}

// Refresh refetches the current page, keeping items visible meanwhile
func (t *Tab[T]) Refresh(ctx context.Context) (View[T], error) {
	return t.load(ctx, func() {})
}

// load applies change, fetches, and applies the result if it is still the
// latest request of the same session.
func (t *Tab[T]) load(ctx context.Context, change func()) (View[T], error) {
	log := logger.L(ctx, t.logger)

	active, gen := t.host.active()
	if !active {
		t.reset()
		return t.View(), ErrSignedOut
	}

	t.mu.Lock()
	change()
	t.seq++
	seq := t.seq
	t.state = StateLoading
	filter, page := t.filter, t.page
	t.mu.Unlock()

	res, err := t.fetcher.FetchPage(ctx, filter, page, t.pageSize)

	// Past the last page after a delete; step back once.
	if err == nil && len(res.Items) == 0 && page > 1 && res.TotalPages < page {
		page = max(res.TotalPages, 1)
		res, err = t.fetcher.FetchPage(ctx, filter, page, t.pageSize)
	}

	t.mu.Lock()
	if seq != t.seq || t.host.generation() != gen {
		view := t.viewLocked()
		t.mu.Unlock()
		t.metrics.StaleResult(string(t.name))
		log.Debug("discarding stale fetch", zap.Uint64("seq", seq))
		return view, nil
	}

	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			t.mu.Unlock()
			t.host.unauthorized(ctx, gen)
			return t.View(), err
		}
		if ctx.Err() != nil {
			// caller gave up; the tab keeps what it had
			t.state = t.settledState()
			view := t.viewLocked()
			t.mu.Unlock()
			return view, err
		}
		msg := operatorMessage(err, "Failed to load "+t.label)
		t.state = StateError
		t.errMsg = msg
		view := t.viewLocked()
		t.mu.Unlock()

		log.Warn("fetch failed", zap.String("outcome", apiclient.Outcome(err)), zap.Error(err))
		t.notify.Error("Failed to load "+t.label, msg)
		return view, err
	}

	t.items = res.Items
	t.page = res.Page
	t.totalPages = res.TotalPages
	t.total = res.Total
	t.summary = res.Summary
	t.state = StateReady
	t.errMsg = ""
	t.updatedAt = t.now()
	view := t.viewLocked()
	t.mu.Unlock()
	return view, nil
}

// settledState is the state to fall back to when a fetch is abandoned. A tab
// that never loaded settles in error with a message to show.
func (t *Tab[T]) settledState() State {
	switch {
	case t.errMsg != "":
		return StateError
	case t.updatedAt.IsZero():
		t.errMsg = "Failed to load " + t.label
		return StateError
	default:
		return StateReady
	}
}
