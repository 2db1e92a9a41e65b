package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	rec := f.login(t)
	auth := NewAuthenticator(f.mem.Tokens(), f.clock)
	ctx := context.Background()

	id, err := auth.Authenticate(ctx, "Bearer "+rec.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", id.UserID)
	assert.Equal(t, "web", id.ClientID)
	assert.Equal(t, rec.ID, id.Token.ID)

	id, err = auth.Authenticate(ctx, "bearer   "+rec.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", id.UserID)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", rec.AccessToken, "Bearer " + rec.RefreshToken, "Bearer nope"} {
		_, err := auth.Authenticate(ctx, h)
		requireKind(t, err, KindInvalidToken)
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	f := newFixture(t)
	rec := f.login(t)
	auth := NewAuthenticator(f.mem.Tokens(), f.clock)

	f.advance(time.Hour)
	_, err := auth.Authenticate(context.Background(), "Bearer "+rec.AccessToken)
	requireKind(t, err, KindInvalidToken)
}

func TestAuthenticate_RevokedByRefresh(t *testing.T) {
	f := newFixture(t)
	rec := f.login(t)
	auth := NewAuthenticator(f.mem.Tokens(), f.clock)

	_, err := f.engine.Token(context.Background(), tokenRequest(refreshForm("web", "web-secret", rec.RefreshToken)), TokenOptions{})
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), "Bearer "+rec.AccessToken)
	requireKind(t, err, KindInvalidToken)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), &Identity{UserID: "u1"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}
