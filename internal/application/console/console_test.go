package console_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sparknexora/backoffice/internal/application/auth"
	"github.com/sparknexora/backoffice/internal/application/collection"
	"github.com/sparknexora/backoffice/internal/application/console"
	"github.com/sparknexora/backoffice/internal/application/notify"
	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/config"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
	"github.com/sparknexora/backoffice/internal/infrastructure/tokenstore"
	"github.com/sparknexora/backoffice/internal/infrastructure/validation"
	"github.com/sparknexora/backoffice/internal/testutil/fakebackend"
	"github.com/sparknexora/backoffice/internal/testutil/fakeclock"
)

const waitFor = 2 * time.Second

type harness struct {
	be      *fakebackend.Server
	store   tokenstore.Store
	guard   *auth.Guard
	queue   *notify.Queue
	console *console.Console
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := fakebackend.New(t)
	be.SeedContacts(
		map[string]any{"_id": "abc123", "name": "Jane Doe", "email": "jane@acme.io", "status": "new", "priority": "high", "message": "Need SEO", "createdAt": "2026-03-01T10:00:00Z"},
		map[string]any{"_id": "xyz987", "name": "Li Wei", "email": "li@startup.cn", "status": "new", "message": "Pricing?", "createdAt": "2026-03-02T10:00:00Z"},
		map[string]any{"_id": "n3", "name": "Omar Haddad", "email": "omar@shop.ae", "status": "new", "message": "Hello", "createdAt": "2026-03-03T10:00:00Z"},
		map[string]any{"_id": "r1", "name": "Ana Souza", "email": "ana@loja.br", "status": "replied", "message": "Thanks", "createdAt": "2026-03-04T10:00:00Z"},
		map[string]any{"_id": "r2", "name": "Tom Berg", "email": "tom@berg.se", "status": "replied", "message": "Ok", "createdAt": "2026-03-05T10:00:00Z"},
	)
	be.SeedPayments(
		map[string]any{"id": "p1", "status": "succeeded", "customerName": "John Smith", "packageName": "Growth Ignite", "amount": 499.0, "createdAt": "2026-03-01T10:00:00Z"},
		map[string]any{"id": "p2", "status": "pending", "customerName": "Sarah Johnson", "packageName": "Starter Spark", "amount": 199.0, "createdAt": "2026-03-02T10:00:00Z"},
	)

	store := tokenstore.NewMemory()
	var guard *auth.Guard
	api, err := apiclient.New(config.BackendConfig{BaseURL: be.BaseURL(), Timeout: waitFor},
		apiclient.WithTokenSource(apiclient.TokenFunc(func() string { return guard.Token() })))
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	guard = auth.NewGuard(api, store, auth.GuardConfig{}, log, nil)
	queue := notify.NewQueue(notify.WithScheduler(fakeclock.New(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))))

	c := console.New(
		guard,
		collection.NewContactsClient(api, log),
		collection.NewPaymentsClient(api, log),
		api,
		queue,
		console.Config{PageSize: 2, RecentLimit: 3},
		log,
		metrics.New(),
	)
	return &harness{be: be, store: store, guard: guard, queue: queue, console: c}
}

func (h *harness) login(t *testing.T) session.Session {
	t.Helper()
	s, err := h.console.Login(context.Background(), fakebackend.Admin.Identifier, fakebackend.Admin.Secret)
	require.NoError(t, err)
	return s
}

func (h *harness) titles() []string {
	var out []string
	for _, n := range h.queue.List() {
		out = append(out, n.Title)
	}
	return out
}

func contactIDs(items []contact.Contact) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func TestConsole_SignedOut(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.Equal(t, console.StateUnauthenticated, h.console.Contacts().View().State)
	assert.Equal(t, console.StateUnauthenticated, h.console.Payments().View().State)

	_, err := h.console.Contacts().Refresh(ctx)
	assert.ErrorIs(t, err, console.ErrSignedOut)
	_, err = h.console.Overview(ctx)
	assert.ErrorIs(t, err, console.ErrSignedOut)
	_, err = h.console.RequestContactDeletion(ctx, "abc123")
	assert.ErrorIs(t, err, console.ErrSignedOut)

	assert.Empty(t, h.be.Calls(http.MethodGet, "/contacts"))
}

func TestConsole_Login(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)
	assert.Equal(t, "Agency Admin", s.Identity().Name)

	contacts := h.console.Contacts().View()
	assert.Equal(t, console.StateReady, contacts.State)
	assert.Equal(t, []string{"abc123", "xyz987"}, contactIDs(contacts.Items))
	assert.Equal(t, 1, contacts.Page)
	assert.Equal(t, 3, contacts.TotalPages)
	assert.NotNil(t, contacts.UpdatedAt)

	payments := h.console.Payments().View()
	assert.Equal(t, console.StateReady, payments.State)
	assert.Len(t, payments.Items, 2)
	require.NotNil(t, payments.Summary)
	assert.Equal(t, "499", payments.Summary.TotalRevenue.String())

	assert.Contains(t, h.titles(), "Login Successful")
}

func TestConsole_LoginFailed(t *testing.T) {
	h := newHarness(t)

	_, err := h.console.Login(context.Background(), fakebackend.Admin.Identifier, "nope")
	require.ErrorIs(t, err, auth.ErrLoginFailed)

	_, active := h.console.Session()
	assert.False(t, active)
	assert.Equal(t, console.StateUnauthenticated, h.console.Contacts().View().State)

	list := h.queue.List()
	require.Len(t, list, 1)
	assert.Equal(t, notify.KindError, list[0].Kind)
	assert.Equal(t, "Login Failed", list[0].Title)
	assert.Equal(t, "Invalid credentials", list[0].Body)
}

func TestConsole_StartRestoresSession(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.console.Start(context.Background()), "nothing stored yet")

	h.login(t)
	logins := len(h.be.Calls(http.MethodPost, "/auth/login"))

	restarted := auth.NewGuard(nil, h.store, auth.GuardConfig{}, nil, nil)
	require.True(t, restarted.Restore(context.Background()))
	s, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, "tok-admin", s.Token())

	require.True(t, h.console.Start(context.Background()))
	assert.Equal(t, console.StateReady, h.console.Contacts().View().State)
	assert.Len(t, h.be.Calls(http.MethodPost, "/auth/login"), logins, "restore never calls the backend")
}

func TestConsole_UpdateContactStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)
	fetches := len(h.be.Calls(http.MethodGet, "/contacts"))

	view, err := h.console.UpdateContactStatus(ctx, "abc123", "closed", "")
	require.NoError(t, err)

	rec, ok := h.be.Contact("abc123")
	require.True(t, ok)
	assert.Equal(t, "closed", rec["status"])

	puts := h.be.Calls(http.MethodPut, "/contacts/abc123/status")
	require.Len(t, puts, 1)
	assert.Equal(t, "closed", puts[0].Body["status"])
	assert.NotContains(t, puts[0].Body, "priority")

	assert.Len(t, h.be.Calls(http.MethodGet, "/contacts"), fetches+1, "one refresh after the mutation")
	assert.Equal(t, console.StateReady, view.State)
	require.NotEmpty(t, view.Items)
	assert.Equal(t, contact.StatusClosed, view.Items[0].Status)
	assert.Contains(t, h.titles(), "Status Updated")

	t.Run("invalid status never reaches the backend", func(t *testing.T) {
		_, err := h.console.UpdateContactStatus(ctx, "abc123", "archived", "")
		var verr *validation.Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "status", verr.Fields[0].Field)
		assert.Len(t, h.be.Calls(http.MethodPut, "/contacts/abc123/status"), 1)
	})

	t.Run("backend rejection keeps the list", func(t *testing.T) {
		before := h.console.Contacts().View()
		h.be.Fail("PUT /contacts/:id/status", http.StatusUnprocessableEntity, "Contact is archived", 1)

		view, err := h.console.UpdateContactStatus(ctx, "abc123", "read", "urgent")
		var rejected *apiclient.ServerRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, console.StateReady, view.State)
		assert.Equal(t, before.Items, view.Items)

		last := h.queue.List()[len(h.queue.List())-1]
		assert.Equal(t, "Update Failed", last.Title)
		assert.Equal(t, "Contact is archived", last.Body)
	})
}

func TestConsole_AddContactNote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	view, err := h.console.AddContactNote(ctx, "abc123", "  Called back, wants a quote  ")
	require.NoError(t, err)

	puts := h.be.Calls(http.MethodPut, "/contacts/abc123/note")
	require.Len(t, puts, 1)
	assert.Equal(t, "Called back, wants a quote", puts[0].Body["note"])
	assert.Equal(t, "Agency Admin", puts[0].Body["addedBy"])

	require.Len(t, view.Items[0].AdminNotes, 1)
	assert.Equal(t, "Agency Admin", view.Items[0].AdminNotes[0].AddedBy)

	_, err = h.console.AddContactNote(ctx, "abc123", "   ")
	var verr *validation.Error
	assert.True(t, errors.As(err, &verr))
}

func TestConsole_DeleteConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling issues no delete", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		before := h.console.Contacts().View()

		conf, err := h.console.RequestContactDeletion(ctx, "xyz987")
		require.NoError(t, err)
		assert.Equal(t, "xyz987", conf.ItemID)
		assert.Contains(t, conf.Prompt, "Li Wei")
		assert.Len(t, h.console.Pending(), 1)

		view, err := h.console.CancelDeletion(ctx, conf.ID)
		assert.ErrorIs(t, err, console.ErrConfirmationAborted)
		assert.Equal(t, before.Items, view.Items)
		assert.Equal(t, console.StateReady, view.State)

		assert.Empty(t, h.be.Calls(http.MethodDelete, "/contacts"))
		_, ok := h.be.Contact("xyz987")
		assert.True(t, ok)
		assert.NotContains(t, h.titles(), "Contact Deleted")

		_, err = h.console.ConfirmDeletion(ctx, conf.ID)
		assert.ErrorIs(t, err, console.ErrUnknownConfirmation, "a cancelled confirmation cannot be confirmed")
	})

	t.Run("confirming deletes and refreshes", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		conf, err := h.console.RequestContactDeletion(ctx, "xyz987")
		require.NoError(t, err)
		view, err := h.console.ConfirmDeletion(ctx, conf.ID)
		require.NoError(t, err)

		assert.Len(t, h.be.Calls(http.MethodDelete, "/contacts/xyz987"), 1)
		assert.NotContains(t, contactIDs(view.Items), "xyz987")
		assert.Equal(t, 4, view.Total)
		assert.Contains(t, h.titles(), "Contact Deleted")
		assert.Empty(t, h.console.Pending())
	})

	t.Run("failed delete keeps the list", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		before := h.console.Contacts().View()
		h.be.Fail("DELETE /contacts/:id", http.StatusInternalServerError, "", 1)

		conf, err := h.console.RequestContactDeletion(ctx, "abc123")
		require.NoError(t, err)
		view, err := h.console.ConfirmDeletion(ctx, conf.ID)
		require.Error(t, err)

		assert.Equal(t, before.Items, view.Items)
		assert.Equal(t, console.StateReady, view.State)
		last := h.queue.List()[len(h.queue.List())-1]
		assert.Equal(t, "Delete Failed", last.Title)
		assert.Equal(t, "Failed to delete contact. Please try again.", last.Body)
	})
}

func TestConsole_FilterChangeResetsPage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.console.Contacts().SetFilters(ctx, collection.Filter{Status: "new"})
	require.NoError(t, err)
	view, err := h.console.Contacts().GoToPage(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, view.Page)
	assert.Equal(t, []string{"n3"}, contactIDs(view.Items))

	fetches := len(h.be.Calls(http.MethodGet, "/contacts"))
	release := h.be.Gate("GET /contacts")
	done := make(chan console.View[contact.Contact])
	go func() {
		v, _ := h.console.Contacts().SetFilters(ctx, collection.Filter{Status: "replied"})
		done <- v
	}()
	require.True(t, h.be.WaitForCalls(http.MethodGet, "/contacts", fetches+1, waitFor))

	loading := h.console.Contacts().View()
	assert.Equal(t, console.StateLoading, loading.State)
	assert.Equal(t, 1, loading.Page)
	assert.Equal(t, "replied", loading.Filter.Status)
	assert.Empty(t, loading.Items, "items of the old filter are hidden")

	last := h.be.Calls(http.MethodGet, "/contacts")[fetches]
	assert.Equal(t, "1", last.Query.Get("page"))
	assert.Equal(t, "replied", last.Query.Get("status"))

	release()
	final := <-done
	assert.Equal(t, console.StateReady, final.State)
	assert.Equal(t, []string{"r1", "r2"}, contactIDs(final.Items))
	assert.Equal(t, 1, final.Page)

	t.Run("page out of range", func(t *testing.T) {
		_, err := h.console.Contacts().GoToPage(ctx, 5)
		assert.ErrorIs(t, err, console.ErrInvalidPage)
		_, err = h.console.Contacts().GoToPage(ctx, 0)
		assert.ErrorIs(t, err, console.ErrInvalidPage)
	})

	t.Run("clearing filters", func(t *testing.T) {
		view, err := h.console.Contacts().ClearFilters(ctx)
		require.NoError(t, err)
		assert.Equal(t, collection.Filter{}, view.Filter)
		assert.Equal(t, 5, view.Total)
	})
}

func TestConsole_LatestFetchWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	fetches := len(h.be.Calls(http.MethodGet, "/contacts"))
	release := h.be.Gate("GET /contacts")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = h.console.Contacts().SetFilters(ctx, collection.Filter{Status: "new"})
	}()
	require.True(t, h.be.WaitForCalls(http.MethodGet, "/contacts", fetches+1, waitFor))
	go func() {
		defer wg.Done()
		_, _ = h.console.Contacts().SetFilters(ctx, collection.Filter{Status: "replied"})
	}()
	require.True(t, h.be.WaitForCalls(http.MethodGet, "/contacts", fetches+2, waitFor))

	release()
	wg.Wait()

	view := h.console.Contacts().View()
	assert.Equal(t, console.StateReady, view.State)
	assert.Equal(t, "replied", view.Filter.Status)
	assert.Equal(t, []string{"r1", "r2"}, contactIDs(view.Items))
}

func TestConsole_FetchFailureKeepsItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)
	before := h.console.Contacts().View()

	h.be.Fail("GET /contacts", http.StatusServiceUnavailable, "Service down", 1)
	view, err := h.console.Contacts().Refresh(ctx)
	require.Error(t, err)

	assert.Equal(t, console.StateError, view.State)
	assert.Equal(t, "Service down", view.Error)
	assert.Equal(t, before.Items, view.Items)
	assert.Contains(t, h.titles(), "Failed to load contacts")

	view, err = h.console.Contacts().Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, console.StateReady, view.State)
	assert.Empty(t, view.Error)
}

func TestConsole_AbandonedFirstLoadSettlesInError(t *testing.T) {
	h := newHarness(t)
	release := h.be.Gate("GET /contacts")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.console.Login(ctx, fakebackend.Admin.Identifier, fakebackend.Admin.Secret)
		done <- err
	}()
	require.True(t, h.be.WaitForCalls(http.MethodGet, "/contacts", 1, waitFor))
	cancel()
	release()
	require.NoError(t, <-done)

	view := h.console.Contacts().View()
	assert.Equal(t, console.StateError, view.State)
	assert.Equal(t, "Failed to load contacts", view.Error)
	assert.Empty(t, view.Items)

	view, err := h.console.Contacts().Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, console.StateReady, view.State)
	assert.Empty(t, view.Error)
}

func TestConsole_SessionExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)
	h.be.Revoke("tok-admin")

	_, err := h.console.Payments().Refresh(ctx)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

	_, active := h.console.Session()
	assert.False(t, active)
	assert.Equal(t, console.StateUnauthenticated, h.console.Contacts().View().State)
	assert.Empty(t, h.console.Contacts().View().Items)
	assert.Equal(t, console.StateUnauthenticated, h.console.Payments().View().State)
	_, err = h.store.Load(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	assert.Contains(t, h.titles(), "Session Expired")
	assert.Empty(t, h.be.Calls(http.MethodPost, "/auth/logout"), "expiry makes no remote call")
}

func TestConsole_LogoutDuringFetch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	fetches := len(h.be.Calls(http.MethodGet, "/payments"))
	release := h.be.Gate("GET /payments")
	done := make(chan error, 1)
	go func() {
		_, err := h.console.Payments().Refresh(ctx)
		done <- err
	}()
	require.True(t, h.be.WaitForCalls(http.MethodGet, "/payments", fetches+1, waitFor))

	h.console.Logout(ctx)
	release()
	require.NoError(t, <-done, "a superseded fetch is discarded silently")

	payments := h.console.Payments().View()
	assert.Equal(t, console.StateUnauthenticated, payments.State)
	assert.Empty(t, payments.Items)
	assert.Nil(t, payments.Summary)
	assert.NotContains(t, h.titles(), "Session Expired")
	assert.Contains(t, h.titles(), "Logged Out")
}

func TestConsole_LogoutDropsConfirmations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	conf, err := h.console.RequestContactDeletion(ctx, "abc123")
	require.NoError(t, err)
	h.console.Logout(ctx)
	h.login(t)

	_, err = h.console.ConfirmDeletion(ctx, conf.ID)
	assert.ErrorIs(t, err, console.ErrUnknownConfirmation)
	assert.Empty(t, h.be.Calls(http.MethodDelete, "/contacts"))
}

func TestConsole_Overview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	ov, err := h.console.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, ov.Stats.Total)
	assert.Equal(t, 3, ov.Stats.ByStatus[contact.StatusNew])
	assert.Equal(t, 2, ov.Stats.ByStatus[contact.StatusReplied])
	assert.Equal(t, []string{"r2", "r1", "n3"}, contactIDs(ov.Recent))
	require.NotNil(t, ov.Payments)
	assert.Equal(t, 1, ov.Payments.StatusCounts["pending"])

	recent := h.be.Calls(http.MethodGet, "/admin/recent")
	require.Len(t, recent, 1)
	assert.Equal(t, "3", recent[0].Query.Get("limit"))

	t.Run("a failing part fails the overview", func(t *testing.T) {
		h.be.Fail("GET /admin/dashboard", http.StatusInternalServerError, "stats offline", 1)
		_, err := h.console.Overview(ctx)
		require.Error(t, err)
		assert.Contains(t, h.titles(), "Dashboard Unavailable")
	})
}
