package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/interfaces/http/dto"
)

// DefaultSessionCookieName names the console credential cookie when none is configured
const DefaultSessionCookieName = "snx_console"

// SessionSource reports the console's signed-in session
type SessionSource interface {
	Session() (session.Session, bool)
}

// SessionCookie carries the console credential to the browser that logged in.
// The cookie is HttpOnly and SameSite=Strict; Secure should be set behind TLS.
type SessionCookie struct {
	Name   string
	Path   string
	Secure bool
}

func (sc SessionCookie) name() string {
	if sc.Name == "" {
		return DefaultSessionCookieName
	}
	return sc.Name
}

func (sc SessionCookie) path() string {
	if sc.Path == "" {
		return "/"
	}
	return sc.Path
}

// Set hands token to the caller for the lifetime of the browser session
func (sc SessionCookie) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sc.name(), token, 0, sc.path(), "", sc.Secure, true)
}

// Clear removes the credential cookie from the caller
func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sc.name(), "", -1, sc.path(), "", sc.Secure, true)
}

// Credential returns the token the request presents: a bearer header wins
// over the cookie.
func (sc SessionCookie) Credential(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	token, err := c.Cookie(sc.name())
	if err != nil {
		return ""
	}
	return token
}

// RequireSession admits only the caller holding the signed-in session's
// credential. API clients get a 401 with a redirect hint; browsers are sent
// to loginPath.
func RequireSession(src SessionSource, cookie SessionCookie, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := src.Session()
		presented := cookie.Credential(c)
		if !ok || presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.Token())) != 1 {
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, loginPath)
				c.Abort()
				return
			}
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Please log in to continue", c.GetString(RequestIDKey))
			resp.Error.Redirect = loginPath
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
			return
		}

		// tag the request logger installed by logger.GinMiddleware
		if ctx := c.Request.Context(); logger.RequestID(ctx) != "" {
			ctx, _ = logger.WithSubject(ctx, logger.FromContext(ctx), s.Identity().Subject)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
