package handler

import (
	"strings"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/validation"
)

// =====================
// Console Request DTOs
// =====================

// ConsoleLoginRequest carries the operator's credentials. email/password
// are accepted as aliases of identifier/secret.
type ConsoleLoginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r ConsoleLoginRequest) credentials() (string, string, error) {
	identifier := strings.TrimSpace(r.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(r.Email)
	}
	secret := r.Secret
	if secret == "" {
		secret = r.Password
	}

	verr := &validation.Error{}
	if identifier == "" {
		verr.Add("identifier", "This field is required")
	}
	if secret == "" {
		verr.Add("secret", "This field is required")
	}
	return identifier, secret, verr.OrNil()
}

// PageRequest selects a page of a tab
type PageRequest struct {
	Page int `json:"page"`
}

// StatusUpdateRequest changes a contact's status and optionally its priority
type StatusUpdateRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority,omitempty"`
}

// NoteRequest appends an admin note to a contact
type NoteRequest struct {
	Note string `json:"note"`
}

// =====================
// Console Response DTOs
// =====================

// SessionResponse describes who, if anyone, is signed in
type SessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *session.Identity `json:"user,omitempty"`
	DisplayName   string            `json:"displayName,omitempty"`
}

func newSessionResponse(s session.Session, ok bool) SessionResponse {
	if !ok {
		return SessionResponse{}
	}
	id := s.Identity()
	return SessionResponse{
		Authenticated: true,
		User:          &id,
		DisplayName:   id.DisplayName(),
	}
}
