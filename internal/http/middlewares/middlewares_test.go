package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/metrics"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/rate"
	"github.com/dropDatabas3/passgrant/internal/store/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mk("a"), mk("b"), mk("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)

	order = nil
	h = Chain(okHandler(), Compose(mk("x"), nil, mk("y")), mk("z"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"x", "y", "z"}, order)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
}

func TestWithClientIP(t *testing.T) {
	var seen string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = ClientIP(r) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	Chain(capture, WithClientIP(false)).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.9", seen)

	Chain(capture, WithClientIP(true)).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.5", seen)
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") }), WithRecover())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "kaboom")
}

type stubLimiter struct {
	res rate.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string) (rate.Result, error) { return s.res, s.err }

func TestWithRateLimit(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	lim := rate.NewMemoryLimiter(2, time.Minute)
	h := Chain(okHandler(), WithRateLimit(RateLimitConfig{Limiter: lim, Metrics: m}))

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
		req.RemoteAddr = "198.51.100.1:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	assert.Equal(t, http.StatusNoContent, call().Code)
	assert.Equal(t, http.StatusNoContent, call().Code)
	rr := call()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestWithRateLimit_FailOpen(t *testing.T) {
	h := Chain(okHandler(), WithRateLimit(RateLimitConfig{Limiter: stubLimiter{err: errors.New("redis down")}}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/oauth/token", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestWithMetricsRecordsStatus(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	h := Chain(okHandler(), WithMetrics(m))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="/healthz",status="204"} 1`)
}

func TestRequireBearer(t *testing.T) {
	mem := memory.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &repository.TokenRecord{
		AccessToken:          "access-abc",
		AccessTokenExpiresAt: now.Add(time.Hour),
		RefreshToken:         "refresh-abc",
		ClientID:             "web",
		UserID:               "u1",
	}
	_, err := mem.Tokens().Save(context.Background(), rec)
	require.NoError(t, err)

	auth := oauth.NewAuthenticator(mem.Tokens(), func() time.Time { return now })
	var got *oauth.Identity
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = oauth.IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}), RequireBearer(auth))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer access-abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	for _, hdr := range []string{"", "Bearer nope", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, hdr)
		assert.Equal(t, `Bearer error="invalid_token"`, rr.Header().Get("WWW-Authenticate"))
	}
}
