package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/domain/payment"
	"github.com/sparknexora/backoffice/internal/domain/plan"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
)

// BillingAddress is optional on checkout; a given country must be ISO 3166 alpha-2
type BillingAddress struct {
	Street  string `json:"street,omitempty" validate:"omitempty,max=200"`
	City    string `json:"city,omitempty" validate:"omitempty,max=100"`
	State   string `json:"state,omitempty" validate:"omitempty,max=100"`
	ZipCode string `json:"zipCode,omitempty" validate:"omitempty,max=20"`
	Country string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// CheckoutRequest is a visitor's purchase of one package
type CheckoutRequest struct {
	Package        string          `json:"package" validate:"required"`
	CustomerName   string          `json:"customerName" validate:"required,min=2,max=100"`
	CustomerEmail  string          `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone  string          `json:"customerPhone,omitempty" validate:"omitempty,phone"`
	BillingAddress *BillingAddress `json:"billingAddress,omitempty"`
}

func (r *CheckoutRequest) normalize() {
	r.Package = strings.TrimSpace(r.Package)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.ToLower(strings.TrimSpace(r.CustomerEmail))
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	if a := r.BillingAddress; a != nil {
		a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	}
}

// Handoff is where the visitor's browser goes to pay
type Handoff struct {
	SessionID string    `json:"sessionId,omitempty"`
	URL       string    `json:"url"`
	Plan      plan.Plan `json:"plan"`
}

type checkoutSessionBody struct {
	PackageName    string          `json:"packageName"`
	PackagePrice   json.Number     `json:"packagePrice"`
	Currency       string          `json:"currency"`
	CustomerEmail  string          `json:"customerEmail"`
	CustomerName   string          `json:"customerName"`
	CustomerPhone  string          `json:"customerPhone,omitempty"`
	BillingAddress *BillingAddress `json:"billingAddress,omitempty"`
}

type checkoutSessionReply struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
	ID        string `json:"id"`
}

// BeginCheckout prices the request from the catalog and asks the backend
// for a processor session. The returned URL is always absolute http(s).
func (s *Service) BeginCheckout(ctx context.Context, req CheckoutRequest) (Handoff, error) {
	log := logger.L(ctx, s.logger)

	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		return Handoff{}, err
	}
	p, ok := plan.Find(req.Package)
	if !ok {
		return Handoff{}, fieldError("package", "Unknown package")
	}
	if !p.Purchasable() {
		return Handoff{}, fieldError("package", "This package is quoted individually; please contact us")
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/checkout/session",
		Body: checkoutSessionBody{
			PackageName:    p.Name,
			PackagePrice:   json.Number(p.Price.Amount().StringFixed(2)),
			Currency:       string(p.Price.Currency()),
			CustomerEmail:  req.CustomerEmail,
			CustomerName:   req.CustomerName,
			CustomerPhone:  req.CustomerPhone,
			BillingAddress: req.BillingAddress,
		},
	})
	if err != nil {
		log.Warn("checkout session failed", zap.String("plan", p.Slug), zap.String("outcome", apiclient.Outcome(err)), zap.Error(err))
		return Handoff{}, err
	}

	var reply checkoutSessionReply
	if err := resp.Decode(&reply); err != nil {
		return Handoff{}, err
	}
	target, err := url.Parse(reply.URL)
	if err != nil || !target.IsAbs() || (target.Scheme != "https" && target.Scheme != "http") || target.Host == "" {
		return Handoff{}, apiclient.Malformed("checkout redirect %q is not an absolute http(s) URL", reply.URL)
	}

	sessionID := reply.SessionID
	if sessionID == "" {
		sessionID = reply.ID
	}
	log.Info("checkout started", zap.String("plan", p.Slug), zap.String("session_id", sessionID))
	return Handoff{SessionID: sessionID, URL: target.String(), Plan: p}, nil
}

type verificationReply struct {
	Payment payment.Record `json:"payment"`
	Order   payment.Record `json:"order"`
}

// VerifyPayment fetches the outcome of a processor session after the
// visitor returns to the site.
func (s *Service) VerifyPayment(ctx context.Context, sessionID string) (payment.Receipt, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return payment.Receipt{}, fieldError("session_id", "This field is required")
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/payment/success",
		Query:  url.Values{"session_id": {sessionID}},
	})
	if err != nil {
		return payment.Receipt{}, err
	}

	var reply verificationReply
	if err := resp.Decode(&reply); err != nil {
		return payment.Receipt{}, err
	}
	receipt, err := payment.ResolveReceipt(reply.Payment, reply.Order)
	if err != nil {
		return payment.Receipt{}, fmt.Errorf("%w: %v", apiclient.ErrMalformedResponse, err)
	}
	return receipt, nil
}
