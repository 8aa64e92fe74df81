package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sparknexora/backoffice/internal/application/storefront"
	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/domain/plan"
)

// PublicHandler serves the marketing site's forms and checkout
type PublicHandler struct {
	BaseHandler
	store *storefront.Service
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(store *storefront.Service) *PublicHandler {
	return &PublicHandler{store: store}
}

// ContactReceived acknowledges a contact-form submission
type ContactReceived struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// ListPackages returns the package catalog in display order
func (h *PublicHandler) ListPackages(c *gin.Context) {
	h.Success(c, plan.All())
}

// SubmitContact godoc
// @Summary      Submit the contact form
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        request body contact.Submission true "Contact form"
// @Success      201 {object} dto.Response{data=ContactReceived}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /contact [post]
func (h *PublicHandler) SubmitContact(c *gin.Context) {
	var sub contact.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.InvalidJSON(c)
		return
	}
	id, err := h.store.SubmitContact(c.Request.Context(), sub)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ContactReceived{
		ID:      id,
		Message: "Thank you for your message! We'll get back to you within 24 hours.",
	})
}

// BeginCheckout godoc
// @Summary      Start a hosted checkout for a package
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        request body storefront.CheckoutRequest true "Checkout"
// @Success      200 {object} dto.Response{data=storefront.Handoff}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /checkout [post]
func (h *PublicHandler) BeginCheckout(c *gin.Context) {
	var req storefront.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.InvalidJSON(c)
		return
	}
	handoff, err := h.store.BeginCheckout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, handoff)
}

// VerifyPayment confirms a completed checkout and returns its receipt
func (h *PublicHandler) VerifyPayment(c *gin.Context) {
	receipt, err := h.store.VerifyPayment(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}
