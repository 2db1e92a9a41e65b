package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // base64("0123456789abcdef0123456789abcdef")

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndYAML(t *testing.T) {
	p := writeYAML(t, `
app:
  env: PROD
storage:
  driver: postgres
  dsn: postgres://u:p@localhost/passgrant
oauth:
  access_token_lifetime: 30m
security:
  secretbox_master_key: `+testKey+`
bootstrap:
  clients:
    - id: web
      secret: s
      grant_types: [password, refresh_token]
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, 30*time.Minute, c.OAuth.AccessTokenLifetime)
	assert.Equal(t, 14*24*time.Hour, c.OAuth.RefreshTokenLifetime)
	assert.Equal(t, "X-OTP", c.OAuth.OTPHeader)
	assert.Equal(t, 72, c.OAuth.MaxPasswordLength)
	assert.Equal(t, ":8080", c.Server.Addr)
	require.Len(t, c.Bootstrap.Clients, 1)
	assert.Equal(t, []string{"password", "refresh_token"}, c.Bootstrap.Clients[0].GrantTypes)

	sc := c.StoreConfig()
	assert.Equal(t, "postgres", sc.Driver)
	assert.Equal(t, int32(10), sc.MaxConns)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9000"
security:
  secretbox_master_key: `+testKey+`
`)
	t.Setenv("SERVER_ADDR", ":7000")
	t.Setenv("OAUTH_REFRESH_TOKEN_LIFETIME", "336h")
	t.Setenv("OAUTH_OTP_HEADER", "X-Two-Factor")
	t.Setenv("CACHE_KIND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, 336*time.Hour, c.OAuth.RefreshTokenLifetime)
	assert.Equal(t, "X-Two-Factor", c.OAuth.OTPHeader)
	assert.Equal(t, "redis", c.CacheConfig().Driver)
	assert.Equal(t, "localhost:6379", c.CacheConfig().Addr)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("SECRETBOX_MASTER_KEY", testKey)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Storage.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Security.SecretBoxMasterKey = testKey
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown storage":      func(c *Config) { c.Storage.Driver = "mongo" },
		"postgres without dsn": func(c *Config) { c.Storage.Driver = "postgres" },
		"unknown cache":        func(c *Config) { c.Cache.Kind = "memcached" },
		"redis without addr":   func(c *Config) { c.Cache.Kind = "redis" },
		"zero access ttl":      func(c *Config) { c.OAuth.AccessTokenLifetime = 0 },
		"negative refresh ttl": func(c *Config) { c.OAuth.RefreshTokenLifetime = -time.Second },
		"missing key":          func(c *Config) { c.Security.SecretBoxMasterKey = "" },
		"malformed key":        func(c *Config) { c.Security.SecretBoxMasterKey = "short" },
		"bad rate":             func(c *Config) { c.Rate.Limit = 0 },
		"bad metrics path":     func(c *Config) { c.Metrics.Path = "metrics" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)

	b.OAuth.AccessTokenLifetime = 2 * time.Hour
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestLoad_ExampleFile(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "passgrant.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, 336*time.Hour, c.OAuth.RefreshTokenLifetime)
	require.Len(t, c.Bootstrap.Clients, 2)
	assert.Equal(t, []string{"password", "refresh_token"}, c.Bootstrap.Clients[0].GrantTypes)
	require.Len(t, c.Bootstrap.Registrations, 1)
	assert.Equal(t, "PENDING", c.Bootstrap.Registrations[0].State)
}
