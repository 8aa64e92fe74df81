package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sparknexora/backoffice/internal/application/collection"
	"github.com/sparknexora/backoffice/internal/application/console"
	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/domain/payment"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/interfaces/http/middleware"
)

// ConsoleHandler serves the admin console: session, notifications, tabs and contact actions
type ConsoleHandler struct {
	BaseHandler
	console *console.Console
	cookie  middleware.SessionCookie
}

// NewConsoleHandler creates a new console handler. A successful login hands
// the caller its credential through cookie.
func NewConsoleHandler(c *console.Console, cookie middleware.SessionCookie) *ConsoleHandler {
	return &ConsoleHandler{console: c, cookie: cookie}
}

// tabController is a resource tab with its item type erased
type tabController interface {
	View() any
	SetFilters(ctx context.Context, f collection.Filter) (any, error)
	ClearFilters(ctx context.Context) (any, error)
	GoToPage(ctx context.Context, n int) (any, error)
	Refresh(ctx context.Context) (any, error)
}

type tabAdapter[T any] struct {
	tab *console.Tab[T]
}

func (a tabAdapter[T]) View() any { return a.tab.View() }

func (a tabAdapter[T]) SetFilters(ctx context.Context, f collection.Filter) (any, error) {
	return a.tab.SetFilters(ctx, f)
}

func (a tabAdapter[T]) ClearFilters(ctx context.Context) (any, error) {
	return a.tab.ClearFilters(ctx)
}

func (a tabAdapter[T]) GoToPage(ctx context.Context, n int) (any, error) {
	return a.tab.GoToPage(ctx, n)
}

func (a tabAdapter[T]) Refresh(ctx context.Context) (any, error) {
	return a.tab.Refresh(ctx)
}

func (h *ConsoleHandler) tab(c *gin.Context) (tabController, bool) {
	switch console.TabName(c.Param("tab")) {
	case console.TabContacts:
		return tabAdapter[contact.Contact]{tab: h.console.Contacts()}, true
	case console.TabPayments:
		return tabAdapter[payment.Payment]{tab: h.console.Payments()}, true
	}
	h.HandleError(c, console.ErrUnknownTab)
	return nil, false
}

// respondView answers a tab operation. Backend failures while loading are
// already carried by the view's error state, so they still answer 200.
func (h *ConsoleHandler) respondView(c *gin.Context, view any, err error) {
	if err != nil && !isLoadFailure(err) {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

func isLoadFailure(err error) bool {
	var rejected *apiclient.ServerRejectedError
	return errors.As(err, &rejected) ||
		errors.Is(err, apiclient.ErrNetworkUnreachable) ||
		errors.Is(err, apiclient.ErrMalformedResponse)
}

// Login godoc
// @Summary      Console login
// @Tags         console
// @Accept       json
// @Produce      json
// @Param        request body ConsoleLoginRequest true "Credentials"
// @Success      200 {object} dto.Response{data=SessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /console/login [post]
func (h *ConsoleHandler) Login(c *gin.Context) {
	var req ConsoleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidJSON(c)
		return
	}
	identifier, secret, err := req.credentials()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	s, err := h.console.Login(c.Request.Context(), identifier, secret)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.cookie.Set(c, s.Token())
	h.Success(c, newSessionResponse(s, true))
}

// Logout godoc
// @Summary      Console logout
// @Tags         console
// @Produce      json
// @Success      200 {object} dto.Response{data=SessionResponse}
// @Router       /console/logout [post]
func (h *ConsoleHandler) Logout(c *gin.Context) {
	h.console.Logout(c.Request.Context())
	h.cookie.Clear(c)
	h.Success(c, SessionResponse{})
}

// Session reports the signed-in operator
func (h *ConsoleHandler) Session(c *gin.Context) {
	h.Success(c, newSessionResponse(h.console.Session()))
}

// ListNotifications returns visible notifications, oldest first
func (h *ConsoleHandler) ListNotifications(c *gin.Context) {
	h.Success(c, h.console.Notifications().List())
}

// DismissNotification removes one notification before it expires. An id
// that already expired is a no-op.
func (h *ConsoleHandler) DismissNotification(c *gin.Context) {
	h.console.Notifications().Dismiss(c.Param("id"))
	h.NoContent(c)
}

// Overview godoc
// @Summary      Dashboard overview
// @Tags         console
// @Produce      json
// @Success      200 {object} dto.Response{data=console.Overview}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /console/overview [get]
func (h *ConsoleHandler) Overview(c *gin.Context) {
	ov, err := h.console.Overview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ov)
}

// GetTab returns the tab's current view without fetching
func (h *ConsoleHandler) GetTab(c *gin.Context) {
	tab, ok := h.tab(c)
	if !ok {
		return
	}
	h.Success(c, tab.View())
}

// RefreshTab refetches the tab's current page
func (h *ConsoleHandler) RefreshTab(c *gin.Context) {
	tab, ok := h.tab(c)
	if !ok {
		return
	}
	view, err := tab.Refresh(c.Request.Context())
	h.respondView(c, view, err)
}

// SetFilters godoc
// @Summary      Replace tab filters
// @Tags         console
// @Accept       json
// @Produce      json
// @Param        tab path string true "contacts or payments"
// @Param        request body collection.Filter true "Filters"
// @Success      200 {object} dto.Response
// @Router       /console/tabs/{tab}/filters [put]
func (h *ConsoleHandler) SetFilters(c *gin.Context) {
	tab, ok := h.tab(c)
	if !ok {
		return
	}
	var f collection.Filter
	if err := c.ShouldBindJSON(&f); err != nil {
		h.InvalidJSON(c)
		return
	}
	view, err := tab.SetFilters(c.Request.Context(), f)
	h.respondView(c, view, err)
}

// ClearFilters drops every filter of the tab
func (h *ConsoleHandler) ClearFilters(c *gin.Context) {
	tab, ok := h.tab(c)
	if !ok {
		return
	}
	view, err := tab.ClearFilters(c.Request.Context())
	h.respondView(c, view, err)
}

// GoToPage fetches another page of the tab
func (h *ConsoleHandler) GoToPage(c *gin.Context) {
	tab, ok := h.tab(c)
	if !ok {
		return
	}
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidJSON(c)
		return
	}
	view, err := tab.GoToPage(c.Request.Context(), req.Page)
	h.respondView(c, view, err)
}

// UpdateContactStatus godoc
// @Summary      Change a contact's status
// @Tags         console
// @Accept       json
// @Produce      json
// @Param        id path string true "Contact ID"
// @Param        request body StatusUpdateRequest true "Status"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /console/contacts/{id}/status [put]
func (h *ConsoleHandler) UpdateContactStatus(c *gin.Context) {
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidJSON(c)
		return
	}
	view, err := h.console.UpdateContactStatus(c.Request.Context(), c.Param("id"), req.Status, req.Priority)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// AddContactNote appends an admin note
func (h *ConsoleHandler) AddContactNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidJSON(c)
		return
	}
	view, err := h.console.AddContactNote(c.Request.Context(), c.Param("id"), req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// RequestContactDeletion opens a confirmation; nothing is deleted yet
func (h *ConsoleHandler) RequestContactDeletion(c *gin.Context) {
	conf, err := h.console.RequestContactDeletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, conf)
}

// ListConfirmations returns confirmations awaiting an answer
func (h *ConsoleHandler) ListConfirmations(c *gin.Context) {
	h.Success(c, h.console.Pending())
}

// Confirm carries out a pending deletion
func (h *ConsoleHandler) Confirm(c *gin.Context) {
	id, ok := h.confirmationID(c)
	if !ok {
		return
	}
	view, err := h.console.ConfirmDeletion(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Cancel drops a pending deletion
func (h *ConsoleHandler) Cancel(c *gin.Context) {
	id, ok := h.confirmationID(c)
	if !ok {
		return
	}
	view, err := h.console.CancelDeletion(c.Request.Context(), id)
	if err != nil && !isAborted(err) {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

func (h *ConsoleHandler) confirmationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.HandleError(c, console.ErrUnknownConfirmation)
		return uuid.Nil, false
	}
	return id, true
}
