// Package session models the signed-in console identity and the durable
// credential it is restored from.
package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sparknexora/backoffice/internal/domain/shared"
)

var (
	ErrMissingToken   = shared.NewDomainError("SESSION_MISSING_TOKEN", "session requires a credential token")
	ErrMissingSubject = shared.NewDomainError("SESSION_MISSING_SUBJECT", "session requires an identity subject")
)

// Identity is who the console is signed in as
type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// DisplayName is the best human label for the identity
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return i.Subject
	}
}

// Session pairs an opaque bearer token with the identity it was issued for.
// The zero value is the signed-out state; New never returns a partial one.
type Session struct {
	token    string
	identity Identity
}

// New builds a session, rejecting a missing token or subject
func New(token string, identity Identity) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrMissingToken
	}
	if strings.TrimSpace(identity.Subject) == "" {
		return Session{}, ErrMissingSubject
	}
	return Session{token: token, identity: identity}, nil
}

func (s Session) Token() string      { return s.token }
func (s Session) Identity() Identity { return s.identity }

// Active reports whether s is a signed-in session
func (s Session) Active() bool { return s.token != "" }

// Credential is the single durable record kept between process restarts
type Credential struct {
	Token    string    `json:"token"`
	Identity Identity  `json:"user"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Credential snapshots s for durable storage
func (s Session) Credential(now time.Time) Credential {
	return Credential{Token: s.token, Identity: s.identity, IssuedAt: now.UTC()}
}

// Session rebuilds the session a credential was saved from
func (c Credential) Session() (Session, error) {
	return New(c.Token, c.Identity)
}

// IdentityFromToken reads identity claims from a JWT without verifying its
// signature. The backend is the authority on the token; the console only
// uses the claims to label a session when the login response carried no user.
func IdentityFromToken(token string) (Identity, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, false
	}

	id := Identity{
		Subject: firstClaim(claims, "sub", "id", "userId", "_id"),
		Email:   firstClaim(claims, "email"),
		Name:    firstClaim(claims, "name", "username"),
	}
	if id.Subject == "" {
		id.Subject = id.Email
	}
	return id, id.Subject != ""
}

func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
