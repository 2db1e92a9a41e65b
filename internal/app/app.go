// Package app arma el grafo de dependencias del servicio a partir de la
// config: stores, cache, limiter, métricas, grant engine y router.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/passgrant/internal/app/instance"
	"github.com/dropDatabas3/passgrant/internal/cache"
	"github.com/dropDatabas3/passgrant/internal/config"
	authctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/passgrant/internal/http/controllers/oauth"
	"github.com/dropDatabas3/passgrant/internal/http/router"
	"github.com/dropDatabas3/passgrant/internal/metrics"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
	"github.com/dropDatabas3/passgrant/internal/rate"
	"github.com/dropDatabas3/passgrant/internal/security/secretbox"
	"github.com/dropDatabas3/passgrant/internal/security/totp"
	"github.com/dropDatabas3/passgrant/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	Stores        *store.Stores
	Cache         cache.Client
	Box           *secretbox.Box
	Limiter       rate.Limiter
	Metrics       *metrics.Metrics
	Engine        *oauth.Engine
	Authenticator *oauth.Authenticator
	Instance      *instance.Holder

	cfg       atomic.Pointer[config.Config]
	startedAt time.Time
}

// Options permite a los tests inyectar piezas ya construidas.
type Options struct {
	Stores *store.Stores
	Cache  cache.Client
	Clock  func() time.Time
}

// New construye el container. Lo que no venga en opts se abre según cfg.
// Ante error cierra lo que ya haya abierto.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *Container, err error) {
	c := &Container{startedAt: time.Now().UTC()}
	c.cfg.Store(cfg)
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if c.Box, err = secretbox.New(cfg.Security.SecretBoxMasterKey); err != nil {
		return nil, fmt.Errorf("app: secretbox: %w", err)
	}

	c.Stores = opts.Stores
	if c.Stores == nil {
		if c.Stores, err = store.Open(ctx, cfg.StoreConfig()); err != nil {
			return nil, fmt.Errorf("app: open store: %w", err)
		}
	}
	if !cfg.Bootstrap.Empty() {
		if err = store.Seed(ctx, c.Stores, c.Box, cfg.Bootstrap); err != nil {
			return nil, fmt.Errorf("app: seed: %w", err)
		}
	}

	c.Cache = opts.Cache
	if c.Cache == nil {
		if c.Cache, err = cache.New(ctx, cfg.CacheConfig()); err != nil {
			return nil, fmt.Errorf("app: cache: %w", err)
		}
	}

	if cfg.Rate.Enabled {
		c.Limiter = newLimiter(cfg, c.Cache)
	}

	if cfg.Metrics.Enabled {
		if c.Metrics, err = metrics.New(nil); err != nil {
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
		if c.Stores.Pool != nil {
			pool := c.Stores.Pool
			if err = c.Metrics.RegisterPool(func() *pgxpool.Pool { return pool }); err != nil {
				return nil, fmt.Errorf("app: pool metrics: %w", err)
			}
		}
	}

	c.Engine = oauth.NewEngine(oauth.Deps{
		Clients:       c.Stores.Clients,
		Users:         c.Stores.Users,
		Registrations: c.Stores.Registrations,
		Tokens:        c.Stores.Tokens,
		TwoFactor:     totp.NewValidator(c.Box, c.Cache),
		Config: oauth.Config{
			AccessTokenLifetime:      cfg.OAuth.AccessTokenLifetime,
			RefreshTokenLifetime:     cfg.OAuth.RefreshTokenLifetime,
			OTPHeader:                cfg.OAuth.OTPHeader,
			MaxPasswordLength:        cfg.OAuth.MaxPasswordLength,
			RequireEmailVerification: cfg.OAuth.RequireEmailVerification,
		},
		Clock: opts.Clock,
	})
	c.Authenticator = oauth.NewAuthenticator(c.Stores.Tokens, opts.Clock)
	c.Instance = instance.NewHolder(c.instanceKey, c.loadInstance)

	return c, nil
}

// newLimiter usa Redis si el cache es Redis, así el límite es global entre
// réplicas; si no, un limiter en memoria por proceso.
func newLimiter(cfg *config.Config, cc cache.Client) rate.Limiter {
	if r, ok := cc.(*cache.Redis); ok {
		return rate.NewRedisLimiter(r.Raw(), cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.Limit, cfg.Rate.Window)
	}
	return rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window)
}

// Config devuelve la config vigente.
func (c *Container) Config() *config.Config { return c.cfg.Load() }

// Reload reemplaza la config vigente. Solo afecta lo que se lee en caliente
// (info de instancia); el resto requiere reiniciar.
func (c *Container) Reload(cfg *config.Config) {
	c.cfg.Store(cfg)
	c.Instance.Invalidate()
}

func (c *Container) instanceKey() instance.Key {
	cfg := c.Config()
	return instance.Key{Version: cfg.App.Version, Fingerprint: cfg.Fingerprint()}
}

func (c *Container) loadInstance(ctx context.Context, k instance.Key) (instance.Info, error) {
	cfg := c.Config()
	schema, err := c.Stores.SchemaVersion(ctx)
	if err != nil {
		return instance.Info{}, fmt.Errorf("schema version: %w", err)
	}
	host, _ := os.Hostname()
	return instance.Info{
		Name:              cfg.App.Name,
		Version:           k.Version,
		Hostname:          host,
		StorageDriver:     c.Stores.Driver,
		SchemaVersion:     schema,
		ConfigFingerprint: k.Fingerprint,
		StartedAt:         c.startedAt,
		LoadedAt:          time.Now().UTC(),
	}, nil
}

// Handler arma el router HTTP con todos los controllers.
func (c *Container) Handler() http.Handler {
	cfg := c.Config()
	return router.New(router.Deps{
		Token: oauthctrl.NewTokenController(c.Engine, c.Metrics),
		Me:    authctrl.NewMeController(),
		Health: healthctrl.NewHealthController(c.Instance,
			healthctrl.Check{Name: "store", Ping: c.Stores.Ping},
			healthctrl.Check{Name: "cache", Ping: c.Cache.Ping},
		),
		Authenticator:     c.Authenticator,
		Limiter:           c.Limiter,
		Metrics:           c.Metrics,
		MetricsPath:       cfg.Metrics.Path,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})
}

func (c *Container) Close() {
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			logger.L().Warn("cache close failed", logger.Err(err))
		}
	}
	if c.Stores != nil {
		c.Stores.Close()
	}
}
