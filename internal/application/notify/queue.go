// Package notify is the console's queue of transient operator messages.
// Each notification expires on its own timer; nothing is persisted.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
)

// DefaultDuration applies when Show is given no positive duration
const DefaultDuration = 5 * time.Second

// Kind is the severity of a notification
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Notification is one visible message
type Notification struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Title     string        `json:"title"`
	Body      string        `json:"body,omitempty"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// MarshalJSON reports the duration in milliseconds for the browser
func (n Notification) MarshalJSON() ([]byte, error) {
	type plain Notification
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"durationMs"`
	}{plain(n), n.Duration.Milliseconds()})
}

// Timer is the handle returned by a Scheduler
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (wallClock) Now() time.Time                            { return time.Now() }

// Queue holds notifications in insertion order
type Queue struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]Timer
	closed   bool
	sched    Scheduler
	fallback time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Queue
type Option func(*Queue)

// WithScheduler replaces the wall clock, for deterministic tests
func WithScheduler(s Scheduler) Option { return func(q *Queue) { q.sched = s } }

// WithDefaultDuration overrides DefaultDuration
func WithDefaultDuration(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.fallback = d
		}
	}
}

func WithLogger(l *zap.Logger) Option        { return func(q *Queue) { q.logger = l.Named("notify") } }
func WithMetrics(m *metrics.Metrics) Option { return func(q *Queue) { q.metrics = m } }

// NewQueue returns an empty queue
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		timers:   make(map[string]Timer),
		sched:    wallClock{},
		fallback: DefaultDuration,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Show appends a notification and arms its expiry timer. After Close the
// notification is returned but not queued.
func (q *Queue) Show(kind Kind, title, body string, d time.Duration) Notification {
	if d <= 0 {
		d = q.fallback
	}
	now := q.sched.Now()
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		Duration:  d,
		CreatedAt: now,
		ExpiresAt: now.Add(d),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return n
	}
	q.items = append(q.items, n)
	id := n.ID
	q.timers[id] = q.sched.AfterFunc(d, func() { q.expire(id) })

	q.metrics.NotificationShown(string(kind))
	q.logger.Debug("notification shown",
		zap.String("id", id),
		zap.String("kind", string(kind)),
		zap.String("title", title),
		zap.Duration("duration", d),
	)
	return n
}

func (q *Queue) Success(title, body string) Notification {
	return q.Show(KindSuccess, title, body, 0)
}

func (q *Queue) Error(title, body string) Notification {
	return q.Show(KindError, title, body, 0)
}

func (q *Queue) Warning(title, body string) Notification {
	return q.Show(KindWarning, title, body, 0)
}

func (q *Queue) Info(title, body string) Notification {
	return q.Show(KindInfo, title, body, 0)
}

// Dismiss removes one notification now. Unknown ids are ignored.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
	}
	return q.remove(id)
}

// List returns a snapshot in insertion order
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Close stops every timer and empties the queue
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.timers {
		t.Stop()
	}
	q.timers = make(map[string]Timer)
	q.items = nil
	q.closed = true
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remove(id)
}

// remove deletes id from items and timers; caller holds mu
func (q *Queue) remove(id string) bool {
	delete(q.timers, id)
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}
