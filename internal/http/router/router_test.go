package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/passgrant/internal/app/instance"
	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	authctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/oauth"
	"github.com/dropDatabas3/passgrant/internal/metrics"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/rate"
	"github.com/dropDatabas3/passgrant/internal/security/password"
	"github.com/dropDatabas3/passgrant/internal/store/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, limit int) http.Handler {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	_, err := mem.Clients().Create(ctx, repository.CreateClientInput{ID: "web", Secret: "web-secret", GrantTypes: []string{"password", "refresh_token"}})
	require.NoError(t, err)
	hash, err := password.Hash(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "pw")
	require.NoError(t, err)
	_, err = mem.Users().Create(ctx, repository.CreateUserInput{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hash, EmailVerified: true})
	require.NoError(t, err)

	engine := oauth.NewEngine(oauth.Deps{
		Clients:       mem.Clients(),
		Users:         mem.Users(),
		Registrations: mem.Registrations(),
		Tokens:        mem.Tokens(),
		Config:        oauth.Config{AccessTokenLifetime: time.Hour, RefreshTokenLifetime: 24 * time.Hour, MaxPasswordLength: 72},
	})
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	holder := instance.NewHolder(
		func() instance.Key { return instance.Key{Version: "test"} },
		func(_ context.Context, k instance.Key) (instance.Info, error) {
			return instance.Info{Name: "passgrant", Version: k.Version, StorageDriver: "memory"}, nil
		},
	)

	var limiter rate.Limiter
	if limit > 0 {
		limiter = rate.NewMemoryLimiter(limit, time.Minute)
	}
	return New(Deps{
		Token:         oauthctrl.NewTokenController(engine, m),
		Me:            authctrl.NewMeController(),
		Health:        healthctrl.NewHealthController(holder, healthctrl.Check{Name: "store", Ping: func(context.Context) error { return nil }}),
		Authenticator: oauth.NewAuthenticator(mem.Tokens(), nil),
		Limiter:       limiter,
		Metrics:       m,
	})
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func tokenReq(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginThenMe(t *testing.T) {
	h := newServer(t, 0)

	rr := do(h, tokenReq(url.Values{
		"client_id":     {"web"},
		"client_secret": {"web-secret"},
		"grant_type":    {"password"},
		"username":      {"alice@example.com"},
		"password":      {"pw"},
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tok))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rr = do(h, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"user_id":"u1"`)

	rr = do(h, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Bearer error="invalid_token"`, rr.Header().Get("WWW-Authenticate"))
}

func TestTokenEndpointRejectsGET(t *testing.T) {
	h := newServer(t, 0)
	rr := do(h, httptest.NewRequest(http.MethodGet, "/oauth/token", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error_code":"invalid_request"`)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestTokenEndpointRateLimited(t *testing.T) {
	h := newServer(t, 2)
	form := url.Values{"client_id": {"web"}, "client_secret": {"bad"}, "grant_type": {"password"}}

	for i := 0; i < 2; i++ {
		rr := do(h, tokenReq(form))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	}
	rr := do(h, tokenReq(form))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// el límite aplica solo al token endpoint
	rr = do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(t, 0)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)

	rr = do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newServer(t, 0)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code"`)

	rr = do(h, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
