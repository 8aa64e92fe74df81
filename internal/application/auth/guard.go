// Package auth owns the console session: who is signed in, the bearer token
// used for backend calls, and the durable credential behind restarts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
	"github.com/sparknexora/backoffice/internal/infrastructure/tokenstore"
)

// ErrLoginFailed is matched by every login failure, whatever the cause
var ErrLoginFailed = errors.New("login failed")

// LoginError explains a failed login. errors.Is(err, ErrLoginFailed) holds.
type LoginError struct {
	Message string // safe to show the operator
	Cause   error
}

func (e *LoginError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("login failed: %s: %v", e.Message, e.Cause)
	}
	return "login failed: " + e.Message
}

func (e *LoginError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrLoginFailed}
	}
	return []error{ErrLoginFailed, e.Cause}
}

// Transport is the slice of the backend client the guard needs
type Transport interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// GuardConfig tunes identity fallbacks
type GuardConfig struct {
	// FallbackName labels a session when neither the login response nor the token names the user
	FallbackName string
}

// Guard holds the current session. Its zero state is signed out.
type Guard struct {
	api     Transport
	store   tokenstore.Store
	config  GuardConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.RWMutex
	current    session.Session
	generation uint64
}

// NewGuard creates a signed-out guard
func NewGuard(api Transport, store tokenstore.Store, cfg GuardConfig, log *zap.Logger, m *metrics.Metrics) *Guard {
	if cfg.FallbackName == "" {
		cfg.FallbackName = "Admin User"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		api:     api,
		store:   store,
		config:  cfg,
		logger:  log.Named("auth"),
		metrics: m,
		now:     time.Now,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type loginUser struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *loginUser `json:"user"`
}

// Login exchanges credentials for a session. Any active session is ended
// first, so on failure the guard is always signed out.
func (g *Guard) Login(ctx context.Context, identifier, secret string) (session.Session, error) {
	log := logger.L(ctx, g.logger)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return session.Session{}, g.loginFailed(log, &LoginError{Message: "Email and password are required"})
	}

	g.mu.Lock()
	if g.current.Active() {
		g.current = session.Session{}
		g.generation++
	}
	g.mu.Unlock()

	resp, err := g.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Identifier: identifier, Secret: secret},
	})
	if err != nil {
		return session.Session{}, g.loginFailed(log, &LoginError{Message: loginMessage(err), Cause: err})
	}

	var body loginResponse
	if err := resp.Decode(&body); err != nil {
		return session.Session{}, g.loginFailed(log, &LoginError{Message: loginMessage(err), Cause: err})
	}

	s, err := session.New(body.Token, g.resolveIdentity(identifier, body))
	if err != nil {
		return session.Session{}, g.loginFailed(log, &LoginError{
			Message: "Unexpected response from server",
			Cause:   fmt.Errorf("%w: %v", apiclient.ErrMalformedResponse, err),
		})
	}

	if err := g.store.Save(ctx, s.Credential(g.now())); err != nil {
		return session.Session{}, g.loginFailed(log, &LoginError{Message: "Could not save the session", Cause: err})
	}

	g.mu.Lock()
	g.current = s
	g.generation++
	g.mu.Unlock()

	g.metrics.SessionEvent("login")
	log.Info("console login", zap.String("subject", s.Identity().Subject))
	return s, nil
}

// resolveIdentity prefers the user returned by the backend, then the token
// claims, then the identifier the operator typed.
func (g *Guard) resolveIdentity(identifier string, body loginResponse) session.Identity {
	if u := body.User; u != nil {
		id := session.Identity{Subject: u.ID, Email: u.Email, Name: u.Name}
		if id.Subject == "" {
			id.Subject = u.LegacyID
		}
		if id.Subject == "" {
			id.Subject = u.Email
		}
		if id.Subject != "" {
			return id
		}
	}
	if id, ok := session.IdentityFromToken(body.Token); ok {
		return id
	}

	id := session.Identity{Subject: identifier, Name: g.config.FallbackName}
	if strings.Contains(identifier, "@") {
		id.Email = identifier
	}
	return id
}

func (g *Guard) loginFailed(log *zap.Logger, err *LoginError) error {
	g.metrics.SessionEvent("login_failed")
	log.Warn("console login failed", zap.String("reason", err.Message), zap.Error(err.Cause))
	return err
}

func loginMessage(err error) string {
	var rejected *apiclient.ServerRejectedError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return "Invalid credentials"
	case errors.As(err, &rejected):
		return rejected.UserMessage("Invalid credentials")
	case errors.Is(err, apiclient.ErrNetworkUnreachable):
		return "Unable to reach the server. Please try again."
	case errors.Is(err, apiclient.ErrMalformedResponse):
		return "Unexpected response from server"
	default:
		return "Login failed"
	}
}

// Logout ends the session locally, then tells the backend on a best-effort
// basis. It never fails.
func (g *Guard) Logout(ctx context.Context) {
	log := logger.L(ctx, g.logger)

	g.mu.Lock()
	prev := g.current
	g.current = session.Session{}
	g.generation++
	g.mu.Unlock()

	if err := g.store.Clear(ctx); err != nil {
		log.Error("clear stored credential", zap.Error(err))
	}
	g.metrics.SessionEvent("logout")

	if !prev.Active() {
		return
	}
	_, err := g.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Auth:   true,
		Token:  prev.Token(),
	})
	if err != nil {
		log.Info("remote logout failed, ignoring", zap.Error(err))
	}
	log.Info("console logout", zap.String("subject", prev.Identity().Subject))
}

// Restore signs in from the durable credential without asking the backend.
// An unreadable credential is discarded.
func (g *Guard) Restore(ctx context.Context) bool {
	log := logger.L(ctx, g.logger)

	cred, err := g.store.Load(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Warn("stored credential unreadable, discarding", zap.Error(err))
		if errors.Is(err, tokenstore.ErrCorrupt) {
			_ = g.store.Clear(ctx)
		}
		return false
	}

	s, err := cred.Session()
	if err != nil {
		log.Warn("stored credential incomplete, discarding", zap.Error(err))
		_ = g.store.Clear(ctx)
		return false
	}

	g.mu.Lock()
	g.current = s
	g.generation++
	g.mu.Unlock()

	g.metrics.SessionEvent("restore")
	log.Info("console session restored", zap.String("subject", s.Identity().Subject))
	return true
}

// ExpireIfCurrent ends the session after the backend refused its token, only
// if it is still generation gen, so a stale Unauthorized cannot end a newer
// session. No remote call is made.
func (g *Guard) ExpireIfCurrent(ctx context.Context, gen uint64) bool {
	g.mu.Lock()
	if g.generation != gen || !g.current.Active() {
		g.mu.Unlock()
		return false
	}
	subject := g.current.Identity().Subject
	g.current = session.Session{}
	g.generation++
	g.mu.Unlock()

	if err := g.store.Clear(ctx); err != nil {
		logger.L(ctx, g.logger).Error("clear stored credential", zap.Error(err))
	}
	g.metrics.SessionEvent("expire")
	logger.L(ctx, g.logger).Warn("console session expired", zap.String("subject", subject))
	return true
}

// Current returns the session and whether one is active
func (g *Guard) Current() (session.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current, g.current.Active()
}

// Snapshot returns the session together with its generation, read atomically
func (g *Guard) Snapshot() (session.Session, uint64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current, g.generation
}

// Token is the bearer token for backend calls, or "" when signed out
func (g *Guard) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current.Token()
}

// Generation increases on every login, restore, logout and expiry
func (g *Guard) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}
