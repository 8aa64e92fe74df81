package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/interfaces/http/dto"
)

type fixedSession struct {
	s  session.Session
	ok bool
}

func (f fixedSession) Session() (session.Session, bool) { return f.s, f.ok }

func TestRequireSession(t *testing.T) {
	signedIn, err := session.New("tok", session.Identity{Subject: "u-admin", Name: "Agency Admin"})
	require.NoError(t, err)
	cookie := SessionCookie{}

	newRouter := func(src SessionSource, subject *string) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), logger.GinMiddleware(zap.NewNop()), RequireSession(src, cookie, "/login"))
		router.GET("/console/overview", func(c *gin.Context) {
			*subject = logger.Subject(c.Request.Context())
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	serve := func(router *gin.Engine, accept string, decorate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/console/overview", nil)
		req.Header.Set("Accept", accept)
		if decorate != nil {
			decorate(req)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	withCookie := func(value string) func(*http.Request) {
		return func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: value})
		}
	}
	withBearer := func(value string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+value) }
	}

	assertUnauthorized := func(t *testing.T, w *httptest.ResponseRecorder) {
		t.Helper()
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
		assert.Equal(t, "/login", resp.Error.Redirect)
		assert.Equal(t, w.Header().Get(RequestIDHeader), resp.Error.RequestID)
	}

	t.Run("passes with the session cookie and tags the subject", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{s: signedIn, ok: true}, &subject)

		w := serve(router, "application/json", withCookie("tok"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-admin", subject)
	})

	t.Run("passes with a bearer token", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{s: signedIn, ok: true}, &subject)

		w := serve(router, "application/json", withBearer("tok"))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bearer header wins over the cookie", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{s: signedIn, ok: true}, &subject)

		w := serve(router, "application/json", func(r *http.Request) {
			withCookie("tok")(r)
			withBearer("stale")(r)
		})

		assertUnauthorized(t, w)
		assert.Empty(t, subject)
	})

	t.Run("signed in but no credential presented", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{s: signedIn, ok: true}, &subject)

		assertUnauthorized(t, serve(router, "application/json", nil))
		assert.Empty(t, subject)
	})

	t.Run("signed in but wrong credential presented", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{s: signedIn, ok: true}, &subject)

		assertUnauthorized(t, serve(router, "application/json", withCookie("tok-forged")))
		assertUnauthorized(t, serve(router, "application/json", withBearer("to")))
		assert.Empty(t, subject)
	})

	t.Run("signed out rejects even a once valid credential", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{}, &subject)

		assertUnauthorized(t, serve(router, "application/json", withCookie("tok")))
		assert.Empty(t, subject)
	})

	t.Run("browser without the credential is redirected", func(t *testing.T) {
		var subject string
		router := newRouter(fixedSession{s: signedIn, ok: true}, &subject)

		w := serve(router, "text/html,application/xhtml+xml", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Empty(t, subject)
	})
}

func TestSessionCookie(t *testing.T) {
	issue := func(sc SessionCookie, handle func(*gin.Context)) *http.Cookie {
		t.Helper()
		router := gin.New()
		router.POST("/login", func(c *gin.Context) {
			handle(c)
			c.Status(http.StatusNoContent)
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		return cookies[0]
	}

	t.Run("set is HttpOnly and SameSite strict", func(t *testing.T) {
		c := issue(SessionCookie{}, func(c *gin.Context) { SessionCookie{}.Set(c, "tok") })

		assert.Equal(t, DefaultSessionCookieName, c.Name)
		assert.Equal(t, "tok", c.Value)
		assert.Equal(t, "/", c.Path)
		assert.True(t, c.HttpOnly)
		assert.False(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Zero(t, c.MaxAge)
	})

	t.Run("configured name and secure flag", func(t *testing.T) {
		sc := SessionCookie{Name: "console", Path: "/api", Secure: true}
		c := issue(sc, func(c *gin.Context) { sc.Set(c, "tok") })

		assert.Equal(t, "console", c.Name)
		assert.Equal(t, "/api", c.Path)
		assert.True(t, c.Secure)
	})

	t.Run("clear expires the cookie", func(t *testing.T) {
		c := issue(SessionCookie{}, func(c *gin.Context) { SessionCookie{}.Clear(c) })

		assert.Equal(t, DefaultSessionCookieName, c.Name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
		assert.True(t, c.HttpOnly)
	})
}
