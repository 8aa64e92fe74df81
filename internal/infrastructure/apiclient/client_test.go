package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparknexora/backoffice/internal/infrastructure/config"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(config.BackendConfig{
		BaseURL:    srv.URL + "/api",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		UserAgent:  "backoffice-test",
	}, opts...)
	require.NoError(t, err)
	return c, srv
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(config.BackendConfig{})
	assert.Error(t, err)
}

func TestDo_BuildsRequest(t *testing.T) {
	var got *http.Request
	var gotBody map[string]any

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}, WithTokenSource(TokenFunc(func() string { return "tok-1" })))

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Send(context.Background(), http.MethodPut, "/contacts/abc123/status", "/contacts/:id/status",
		map[string]string{"status": "closed"}, &out)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, "/api/contacts/abc123/status", got.URL.Path)
	assert.Equal(t, "Bearer tok-1", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "backoffice-test", got.Header.Get("User-Agent"))
	assert.Equal(t, "closed", gotBody["status"])
}

func TestDo_DropsEmptyQueryValues(t *testing.T) {
	var query url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	})

	var items []any
	err := c.Get(context.Background(), "/contacts", "", url.Values{
		"status": {"new"}, "priority": {""}, "page": {"1"},
	}, &items)
	require.NoError(t, err)

	assert.Equal(t, "new", query.Get("status"))
	assert.Equal(t, "1", query.Get("page"))
	_, present := query["priority"]
	assert.False(t, present)
}

func TestDo_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 is unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message":"jwt expired"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "4xx carries backend message verbatim",
			status: http.StatusUnprocessableEntity,
			body:   `{"success":false,"message":"Contact already closed"}`,
			check: func(t *testing.T, err error) {
				var rej *ServerRejectedError
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, 422, rej.Status)
				assert.Equal(t, "Contact already closed", rej.UserMessage("fallback"))
			},
		},
		{
			name:   "nested error object",
			status: http.StatusForbidden,
			body:   `{"error":{"code":"FORBIDDEN","message":"Admins only"}}`,
			check: func(t *testing.T, err error) {
				var rej *ServerRejectedError
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, "Admins only", rej.Message)
			},
		},
		{
			name:   "html error page yields generic fallback",
			status: http.StatusNotFound,
			body:   `<html>not found</html>`,
			check: func(t *testing.T, err error) {
				var rej *ServerRejectedError
				require.ErrorAs(t, err, &rej)
				assert.True(t, rej.NotFound())
				assert.Equal(t, "Something went wrong", rej.UserMessage("Something went wrong"))
			},
		},
		{
			name:   "2xx envelope with success=false",
			status: http.StatusOK,
			body:   `{"success":false,"message":"Invalid credentials"}`,
			check: func(t *testing.T, err error) {
				var rej *ServerRejectedError
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, "Invalid credentials", rej.Message)
			},
		},
		{
			name:   "2xx non-JSON is malformed",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, WithMetrics(m))

			err := c.Send(context.Background(), http.MethodPost, "/auth/login", "", map[string]string{}, &struct{}{})
			require.Error(t, err)
			tt.check(t, err)

			n, err := testutil.GatherAndCount(m.Registry(), "backoffice_backend_requests_total")
			require.NoError(t, err)
			assert.Equal(t, 1, n, "a single outcome is recorded")
		})
	}
}

func TestDo_NetworkUnreachable(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := c.Get(context.Background(), "/contacts", "", nil, nil)
	assert.ErrorIs(t, err, ErrNetworkUnreachable)
	assert.Equal(t, "unreachable", Outcome(err))
}

func TestDo_RetriesIdempotentCalls(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	var out map[string]any
	require.NoError(t, c.Get(context.Background(), "/payments", "", nil, &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_DoesNotRetryMutations(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.Send(context.Background(), http.MethodDelete, "/contacts/x", "", nil, nil)
	var rej *ServerRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_DoesNotRetryUnauthorized(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.Get(context.Background(), "/payments", "", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_ContextCanceled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/contacts", "", nil, nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrNetworkUnreachable))
}

func TestSend_NoContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.Send(context.Background(), http.MethodDelete, "/contacts/x", "", nil, nil))
}

func TestBaseURL(t *testing.T) {
	c, err := New(config.BackendConfig{BaseURL: "https://api.example.com/api/"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api", c.BaseURL())
}
