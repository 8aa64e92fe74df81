package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// frozenLimiter returns a limiter whose clock only moves when advance is called
func frozenLimiter(limit int, window time.Duration) (*RateLimiter, func(time.Duration)) {
	rl := NewRateLimiter(limit, window)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.swept = now
	return rl, func(d time.Duration) { now = now.Add(d) }
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows a full burst then blocks", func(t *testing.T) {
		rl, _ := frozenLimiter(3, time.Minute)
		for i := range 3 {
			assert.True(t, rl.Allow("10.0.0.1"), "attempt %d", i+1)
		}
		assert.False(t, rl.Allow("10.0.0.1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl, _ := frozenLimiter(1, time.Minute)
		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	})

	t.Run("refills one token per window share", func(t *testing.T) {
		rl, advance := frozenLimiter(2, time.Minute)
		assert.True(t, rl.Allow("k"))
		assert.True(t, rl.Allow("k"))
		assert.False(t, rl.Allow("k"))

		advance(29 * time.Second)
		assert.False(t, rl.Allow("k"))

		advance(2 * time.Second)
		assert.True(t, rl.Allow("k"))
		assert.False(t, rl.Allow("k"))
	})

	t.Run("remaining counts whole tokens", func(t *testing.T) {
		rl, _ := frozenLimiter(5, time.Minute)
		assert.Equal(t, 5, rl.Remaining("unseen"))
		rl.Allow("k")
		rl.Allow("k")
		assert.Equal(t, 3, rl.Remaining("k"))
	})

	t.Run("idle buckets are swept", func(t *testing.T) {
		rl, advance := frozenLimiter(1, time.Minute)
		rl.Allow("old")
		advance(3 * time.Minute)
		rl.Allow("new")

		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.NotContains(t, rl.clients, "old")
		assert.Contains(t, rl.clients, "new")
	})

	t.Run("non-positive limit is treated as one", func(t *testing.T) {
		rl, _ := frozenLimiter(0, time.Minute)
		assert.True(t, rl.Allow("k"))
		assert.False(t, rl.Allow("k"))
	})

	t.Run("concurrent callers never exceed the burst", func(t *testing.T) {
		rl, _ := frozenLimiter(50, time.Minute)
		var allowed atomic.Int32
		var wg sync.WaitGroup
		for range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rl.Allow("shared") {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(50), allowed.Load())
	})
}

func loginRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.POST("/console/login", mw, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/packages", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func postLogin(r http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/console/login", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("sets limit headers on allowed requests", func(t *testing.T) {
		rl, _ := frozenLimiter(5, time.Minute)
		w := postLogin(loginRouter(RateLimit(rl)), "192.0.2.10:5000")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("blocks with 429 and Retry-After", func(t *testing.T) {
		rl, _ := frozenLimiter(2, time.Minute)
		r := loginRouter(RateLimit(rl))
		postLogin(r, "192.0.2.10:5000")
		postLogin(r, "192.0.2.10:5001")

		w := postLogin(r, "192.0.2.10:5002")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")

		assert.Equal(t, http.StatusOK, postLogin(r, "192.0.2.99:5000").Code)
	})

	t.Run("only guards the routes it is attached to", func(t *testing.T) {
		rl, _ := frozenLimiter(1, time.Minute)
		r := loginRouter(RateLimit(rl))
		postLogin(r, "192.0.2.10:5000")
		assert.Equal(t, http.StatusTooManyRequests, postLogin(r, "192.0.2.10:5000").Code)

		for range 3 {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/packages", nil)
			req.RemoteAddr = "192.0.2.10:5000"
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestRateLimitByKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl, _ := frozenLimiter(1, time.Minute)
	r := loginRouter(RateLimitByKey(rl, func(c *gin.Context) string {
		return c.GetHeader("X-Forwarded-Email")
	}))

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/console/login", nil)
		req.Header.Set("X-Forwarded-Email", email)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("admin@sparknexora.com"))
	assert.Equal(t, http.StatusTooManyRequests, send("admin@sparknexora.com"))
	assert.Equal(t, http.StatusOK, send("ops@sparknexora.com"))
}
