package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dropDatabas3/passgrant/internal/cache"
	"github.com/dropDatabas3/passgrant/internal/security/secretbox"
	"github.com/dropDatabas3/passgrant/internal/store"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env" env:"APP_ENV"`
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR"`
		// Confiar en X-Forwarded-For / X-Real-IP (solo detrás de un proxy propio).
		TrustProxyHeaders bool          `yaml:"trust_proxy_headers" env:"SERVER_TRUST_PROXY_HEADERS"`
		ReadTimeout       time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout      time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Storage struct {
		Driver      string `yaml:"driver" env:"STORAGE_DRIVER"` // memory | postgres
		DSN         string `yaml:"dsn" env:"STORAGE_DSN"`
		MaxConns    int32  `yaml:"max_conns" env:"STORAGE_MAX_CONNS"`
		MinConns    int32  `yaml:"min_conns" env:"STORAGE_MIN_CONNS"`
		AutoMigrate bool   `yaml:"auto_migrate" env:"STORAGE_AUTO_MIGRATE"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind" env:"CACHE_KIND"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr" env:"REDIS_ADDR"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
			Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
		} `yaml:"redis"`
		DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL"`
	} `yaml:"cache"`

	OAuth struct {
		AccessTokenLifetime      time.Duration `yaml:"access_token_lifetime" env:"OAUTH_ACCESS_TOKEN_LIFETIME"`
		RefreshTokenLifetime     time.Duration `yaml:"refresh_token_lifetime" env:"OAUTH_REFRESH_TOKEN_LIFETIME"`
		OTPHeader                string        `yaml:"otp_header" env:"OAUTH_OTP_HEADER"`
		MaxPasswordLength        int           `yaml:"max_password_length" env:"OAUTH_MAX_PASSWORD_LENGTH"`
		RequireEmailVerification bool          `yaml:"require_email_verification" env:"OAUTH_REQUIRE_EMAIL_VERIFICATION"`
	} `yaml:"oauth"`

	Rate struct {
		Enabled bool          `yaml:"enabled" env:"RATE_ENABLED"`
		Limit   int           `yaml:"limit" env:"RATE_LIMIT"`
		Window  time.Duration `yaml:"window" env:"RATE_WINDOW"`
	} `yaml:"rate"`

	Security struct {
		SecretBoxMasterKey string `yaml:"secretbox_master_key" env:"SECRETBOX_MASTER_KEY"` // base64(32 bytes), cifra los secretos TOTP
	} `yaml:"security"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`

	Tracing struct {
		// URL OTLP/HTTP (http://collector:4318). Vacío = tracing deshabilitado.
		Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	} `yaml:"tracing"`

	// Fixtures de arranque; no se leen de env.
	Bootstrap store.Bootstrap `yaml:"bootstrap"`
}

// Default devuelve la config con los defaults aplicados.
func Default() *Config {
	var c Config
	c.App.Env = "dev"
	c.App.Name = "passgrant"
	c.App.Version = "dev"
	c.Log.Level = "info"
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Storage.Driver = "memory"
	c.Storage.MaxConns = 10
	c.Cache.Kind = "memory"
	c.Cache.Redis.Prefix = "passgrant:"
	c.Cache.DefaultTTL = 2 * time.Minute
	c.OAuth.AccessTokenLifetime = time.Hour
	c.OAuth.RefreshTokenLifetime = 14 * 24 * time.Hour
	c.OAuth.OTPHeader = "X-OTP"
	c.OAuth.MaxPasswordLength = 72
	c.Rate.Enabled = true
	c.Rate.Limit = 10
	c.Rate.Window = time.Minute
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	return &c
}

// Load lee el YAML (si path no es vacío) sobre los defaults, aplica los
// overrides por env y valida.
func Load(path string) (*Config, error) {
	c := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnvOverrides: solo pisa lo que está seteado en el entorno.
func (c *Config) applyEnvOverrides() error {
	sections := []any{&c.App, &c.Log, &c.Server, &c.Storage, &c.Cache, &c.OAuth, &c.Rate, &c.Security, &c.Metrics, &c.Tracing}
	for _, s := range sections {
		if err := env.Parse(s); err != nil {
			return fmt.Errorf("config: parse env: %w", err)
		}
	}
	return nil
}

// Validate rechaza configuraciones con las que el servicio no puede arrancar.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (memory|postgres)", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for kind redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}

	if c.OAuth.AccessTokenLifetime <= 0 {
		errs = append(errs, errors.New("oauth.access_token_lifetime must be positive"))
	}
	if c.OAuth.RefreshTokenLifetime <= 0 {
		errs = append(errs, errors.New("oauth.refresh_token_lifetime must be positive"))
	}
	if strings.TrimSpace(c.OAuth.OTPHeader) == "" {
		errs = append(errs, errors.New("oauth.otp_header must not be empty"))
	}
	if c.OAuth.MaxPasswordLength < 0 {
		errs = append(errs, errors.New("oauth.max_password_length must not be negative"))
	}

	if c.Rate.Enabled && (c.Rate.Limit <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("rate.limit and rate.window must be positive when rate limiting is enabled"))
	}

	if strings.TrimSpace(c.Security.SecretBoxMasterKey) == "" {
		errs = append(errs, errors.New("security.secretbox_master_key is required"))
	} else if _, err := secretbox.ParseKey(c.Security.SecretBoxMasterKey); err != nil {
		errs = append(errs, fmt.Errorf("security.secretbox_master_key: %w", err))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path must start with /"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Fingerprint es un SHA-256 estable de la config efectiva. Cambia si cambia
// cualquier valor; lo usa el holder de instancia para invalidarse.
func (c *Config) Fingerprint() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StoreConfig traduce la sección storage al config del factory de stores.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:      c.Storage.Driver,
		DSN:         c.Storage.DSN,
		MaxConns:    c.Storage.MaxConns,
		MinConns:    c.Storage.MinConns,
		AutoMigrate: c.Storage.AutoMigrate,
	}
}

func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Driver:     c.Cache.Kind,
		Addr:       c.Cache.Redis.Addr,
		Password:   c.Cache.Redis.Password,
		DB:         c.Cache.Redis.DB,
		Prefix:     c.Cache.Redis.Prefix,
		DefaultTTL: c.Cache.DefaultTTL,
	}
}
