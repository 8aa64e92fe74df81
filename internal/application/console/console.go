// Package console drives the admin back-office: one tab per resource
// collection, mutate-then-refresh on contacts, confirmation before deletes,
// and operator notifications. It talks to the backend only through the
// session guard and the collection clients.
package console

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/application/notify"
	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/domain/payment"
	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
)

// SessionGuard is the session owner the console defers to
type SessionGuard interface {
	Login(ctx context.Context, identifier, secret string) (session.Session, error)
	Logout(ctx context.Context)
	Restore(ctx context.Context) bool
	Snapshot() (session.Session, uint64)
	Generation() uint64
	ExpireIfCurrent(ctx context.Context, gen uint64) bool
}

// ContactStore mutates contact submissions
type ContactStore interface {
	Fetcher[contact.Contact]
	UpdateItem(ctx context.Context, id, action string, body any) error
	DeleteItem(ctx context.Context, id string) error
}

// Transport reaches backend endpoints that are not collections
type Transport interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Config tunes the console
type Config struct {
	PageSize    int
	RecentLimit int
	// NoteAuthor signs admin notes when the session has no display name
	NoteAuthor string
}

// Console is safe for concurrent use by HTTP handlers
type Console struct {
	guard    SessionGuard
	contacts ContactStore
	api      Transport
	notify   *notify.Queue
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Metrics

	contactsTab *Tab[contact.Contact]
	paymentsTab *Tab[payment.Payment]

	mu      sync.Mutex
	pending map[uuid.UUID]Confirmation
}

// New wires a console. Every tab starts unauthenticated; call Start to
// resume a stored session.
func New(
	guard SessionGuard,
	contacts ContactStore,
	payments Fetcher[payment.Payment],
	api Transport,
	q *notify.Queue,
	cfg Config,
	log *zap.Logger,
	m *metrics.Metrics,
) *Console {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if cfg.NoteAuthor == "" {
		cfg.NoteAuthor = "Admin"
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("console")

	c := &Console{
		guard:    guard,
		contacts: contacts,
		api:      api,
		notify:   q,
		config:   cfg,
		logger:   log,
		metrics:  m,
		pending:  make(map[uuid.UUID]Confirmation),
	}
	c.contactsTab = newTab[contact.Contact](TabContacts, "contacts", contacts, cfg.PageSize, c, q, m, log)
	c.paymentsTab = newTab[payment.Payment](TabPayments, "payments", payments, cfg.PageSize, c, q, m, log)
	return c
}

// Contacts is the contacts tab
func (c *Console) Contacts() *Tab[contact.Contact] { return c.contactsTab }

// Payments is the payments tab
func (c *Console) Payments() *Tab[payment.Payment] { return c.paymentsTab }

// Notifications is the operator's notification queue
func (c *Console) Notifications() *notify.Queue { return c.notify }

// Session returns the signed-in session, if any
func (c *Console) Session() (session.Session, bool) {
	s, _ := c.guard.Snapshot()
	return s, s.Active()
}

// Start resumes a stored session and loads both tabs. It reports whether a
// session was restored.
func (c *Console) Start(ctx context.Context) bool {
	if !c.guard.Restore(ctx) {
		return false
	}
	c.loadAll(ctx)
	return true
}

// Login signs in and loads both tabs. Failures are reported to the
// operator as a "Login Failed" notification.
func (c *Console) Login(ctx context.Context, identifier, secret string) (session.Session, error) {
	c.resetAll()

	s, err := c.guard.Login(ctx, identifier, secret)
	if err != nil {
		c.notify.Error("Login Failed", loginMessage(err))
		return session.Session{}, err
	}

	c.notify.Success("Login Successful", "Welcome back, "+s.Identity().DisplayName())
	c.loadAll(ctx)
	return s, nil
}

// Logout ends the session whatever is in flight. All tab state and pending
// confirmations are dropped before the guard is told.
func (c *Console) Logout(ctx context.Context) {
	c.resetAll()
	c.guard.Logout(ctx)
	c.notify.Info("Logged Out", "You have been signed out.")
}

func (c *Console) loadAll(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.contactsTab.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		_, _ = c.paymentsTab.Refresh(ctx)
	}()
	wg.Wait()
}

func (c *Console) resetAll() {
	c.mu.Lock()
	clear(c.pending)
	c.mu.Unlock()
	c.contactsTab.reset()
	c.paymentsTab.reset()
}

func (c *Console) generation() uint64 { return c.guard.Generation() }

func (c *Console) active() (bool, uint64) {
	s, gen := c.guard.Snapshot()
	return s.Active(), gen
}

// unauthorized handles a 401 seen by a request issued under gen. Only the
// first such answer for the current session expires it.
func (c *Console) unauthorized(ctx context.Context, gen uint64) {
	if !c.guard.ExpireIfCurrent(ctx, gen) {
		logger.L(ctx, c.logger).Debug("ignoring unauthorized answer from an older session")
		return
	}
	c.resetAll()
	c.notify.Warning("Session Expired", "Your session has expired. Please log in again.")
}

// requireSession returns the session generation or ErrSignedOut
func (c *Console) requireSession() (session.Session, uint64, error) {
	s, gen := c.guard.Snapshot()
	if !s.Active() {
		return session.Session{}, gen, ErrSignedOut
	}
	return s, gen, nil
}
