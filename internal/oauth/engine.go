// Package oauth implements the token endpoint grant engine (password and
// refresh_token grants) and bearer token authentication.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/dropDatabas3/passgrant/internal/oauth")

// DefaultOTPHeader carries the one-time password on password grants.
const DefaultOTPHeader = "X-OTP"

// TwoFactorVerifier checks a one-time password against an encrypted secret.
// A false result means the code was wrong; an error means the check itself failed.
type TwoFactorVerifier interface {
	Verify(ctx context.Context, encryptedSecret, code string) (bool, error)
}

// PasswordParams are the credential inputs of a password grant.
type PasswordParams struct {
	Username string
	Password string
	Bypass   *repository.Bypass
}

// PasswordGrantFilter may rewrite password grant inputs before the
// credential check, e.g. to let an external auth plugin inject a bypass.
type PasswordGrantFilter func(ctx context.Context, p PasswordParams) (PasswordParams, error)

// Config holds grant engine settings.
type Config struct {
	AccessTokenLifetime      time.Duration
	RefreshTokenLifetime     time.Duration
	OTPHeader                string
	MaxPasswordLength        int
	RequireEmailVerification bool
}

// Deps contains the engine collaborators.
type Deps struct {
	Clients       repository.ClientRepository
	Users         repository.UserRepository
	Registrations repository.RegistrationRepository
	Tokens        repository.TokenRepository
	TwoFactor     TwoFactorVerifier

	Config Config
	Filter PasswordGrantFilter
	// Builder overrides the default token builder (tests).
	Builder *Builder
	Clock   func() time.Time
}

// Engine handles token requests. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	clients       repository.ClientRepository
	users         repository.UserRepository
	registrations repository.RegistrationRepository
	tokens        repository.TokenRepository
	twoFactor     TwoFactorVerifier

	cfg     Config
	filter  PasswordGrantFilter
	builder *Builder
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(d Deps) *Engine {
	cfg := d.Config
	if cfg.AccessTokenLifetime <= 0 {
		cfg.AccessTokenLifetime = time.Hour
	}
	if cfg.RefreshTokenLifetime <= 0 {
		cfg.RefreshTokenLifetime = 14 * 24 * time.Hour
	}
	if cfg.OTPHeader == "" {
		cfg.OTPHeader = DefaultOTPHeader
	}
	b := d.Builder
	if b == nil {
		b = &Builder{AccessLifetime: cfg.AccessTokenLifetime, RefreshLifetime: cfg.RefreshTokenLifetime}
	}
	now := d.Clock
	if now == nil {
		now = time.Now
	}
	return &Engine{
		clients:       d.Clients,
		users:         d.Users,
		registrations: d.Registrations,
		tokens:        d.Tokens,
		twoFactor:     d.TwoFactor,
		cfg:           cfg,
		filter:        d.Filter,
		builder:       b,
		now:           now,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Token validates req and runs the requested grant. On success the persisted
// token record is returned. Protocol failures are *Error; any other error is
// an internal failure.
func (e *Engine) Token(ctx context.Context, req *Request, opts TokenOptions) (rec *repository.TokenRecord, err error) {
	ctx, span := tracer.Start(ctx, "oauth.Token", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !strings.EqualFold(req.Method, http.MethodPost) {
		return nil, newError(KindInvalidRequest, "Invalid request: method must be POST")
	}
	if !isFormEncoded(req.ContentType) {
		return nil, newError(KindInvalidRequest, "Invalid request: content must be application/x-www-form-urlencoded")
	}

	clientID, clientSecret := req.formValue("client_id"), req.formValue("client_secret")
	if clientID == "" || clientSecret == "" {
		return nil, newError(KindInvalidClient, "Invalid client: cannot retrieve client credentials")
	}
	span.SetAttributes(attribute.String("oauth.client_id", clientID))

	client, err := e.clients.Lookup(ctx, clientID, clientSecret)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.From(ctx).Info("client authentication failed", logger.Layer("service"), logger.ClientID(clientID))
			return nil, newError(KindInvalidClient, "Invalid client: client is invalid")
		}
		return nil, storeFailure("lookup client", err)
	}

	grantType := req.formValue("grant_type")
	if grantType == "" {
		return nil, newError(KindInvalidRequest, "Missing parameter: `grant_type`")
	}
	span.SetAttributes(attribute.String("oauth.grant_type", grantType))
	if grantType != repository.GrantPassword && grantType != repository.GrantRefreshToken {
		return nil, newError(KindUnsupportedGrantType, "Unsupported grant type: `grant_type` is invalid")
	}
	if !client.AllowsGrant(grantType) {
		return nil, newError(KindUnauthorizedClient, "Unauthorized client: `grant_type` is invalid")
	}

	if grantType == repository.GrantPassword {
		return e.passwordGrant(ctx, req, client, opts)
	}
	return e.refreshGrant(ctx, req, client, opts)
}

// storeFailure wraps collaborator errors so they never look like protocol errors.
func storeFailure(op string, err error) error {
	return &internalError{op: op, err: err}
}

type internalError struct {
	op  string
	err error
}

func (e *internalError) Error() string { return "oauth: " + e.op + ": " + e.err.Error() }
func (e *internalError) Unwrap() error { return e.err }
