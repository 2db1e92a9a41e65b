package oauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
)

// Identity is the authenticated principal behind a bearer token.
type Identity struct {
	UserID   string
	ClientID string
	AuthName string
	Token    *repository.TokenRecord
}

// Authenticator validates bearer access tokens. It never mutates the store.
type Authenticator struct {
	tokens repository.TokenRepository
	now    func() time.Time
}

func NewAuthenticator(tokens repository.TokenRepository, clock func() time.Time) *Authenticator {
	if clock == nil {
		clock = time.Now
	}
	return &Authenticator{tokens: tokens, now: clock}
}

// Authenticate resolves the value of an Authorization header.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return nil, newError(KindInvalidToken, "Unauthorized request: no authentication given")
	}
	rec, err := a.tokens.GetByAccess(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindInvalidToken, "Invalid token: access token is invalid")
		}
		return nil, storeFailure("get access token", err)
	}
	if rec.AccessExpired(a.now()) {
		return nil, newError(KindInvalidToken, "Invalid token: access token has expired")
	}
	return &Identity{UserID: rec.UserID, ClientID: rec.ClientID, AuthName: rec.AuthName, Token: rec}, nil
}

func bearerToken(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	t := strings.TrimSpace(h[7:])
	return t, t != ""
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by the bearer middleware.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
