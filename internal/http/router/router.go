// Package router arma el árbol de rutas HTTP del servicio sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/oauth"
	httperrors "github.com/dropDatabas3/passgrant/internal/http/errors"
	mw "github.com/dropDatabas3/passgrant/internal/http/middlewares"
	"github.com/dropDatabas3/passgrant/internal/metrics"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/rate"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Token  *oauthctrl.TokenController
	Me     *authctrl.MeController
	Health *healthctrl.HealthController

	Authenticator *oauth.Authenticator
	// Limiter es opcional: nil = sin rate limiting en /oauth/token.
	Limiter rate.Limiter
	// Metrics es opcional: nil = sin instrumentación ni /metrics.
	Metrics     *metrics.Metrics
	MetricsPath string

	TrustProxyHeaders bool
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(d.TrustProxyHeaders),
		mw.WithLogging(),
		mw.WithMetrics(d.Metrics),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Health
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)

	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, d.Metrics.Handler())
	}

	// POST /oauth/token. Cualquier método llega al engine, que responde
	// invalid_request si no es POST.
	tokenStack := mw.Compose(
		mw.WithNoStore(),
		mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.Limiter, Metrics: d.Metrics}),
	)
	r.With(tokenStack).HandleFunc("/oauth/token", d.Token.Token)

	// Endpoints autenticados con bearer
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.RequireBearer(d.Authenticator))
		r.Get("/me", d.Me.Me)
	})

	return r
}
