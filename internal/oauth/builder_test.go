package oauth

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b := &Builder{AccessLifetime: time.Hour, RefreshLifetime: 48 * time.Hour}

	rec, err := b.Build(freshMetadata("ua", "10.0.0.1", now), now)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Len(t, rec.AccessToken, 43) // 32 bytes, unpadded base64url
	assert.Len(t, rec.RefreshToken, 43)
	assert.NotEqual(t, rec.AccessToken, rec.RefreshToken)
	assert.Equal(t, now.Add(time.Hour), rec.AccessTokenExpiresAt)
	require.NotNil(t, rec.RefreshTokenExpiresAt)
	assert.Equal(t, now.Add(48*time.Hour), *rec.RefreshTokenExpiresAt)
	assert.Equal(t, "ua", rec.LoginDevice)
	assert.Equal(t, "10.0.0.1", rec.LastActivityIP)
	assert.Empty(t, rec.ClientID)
	assert.Empty(t, rec.UserID)
}

func TestBuilder_DeterministicWithFixedSource(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	seed := bytes.Repeat([]byte{0xAB}, 32)
	seed = append(seed, bytes.Repeat([]byte{0xCD}, 32)...)

	b1 := &Builder{AccessLifetime: time.Minute, Rand: bytes.NewReader(seed)}
	b2 := &Builder{AccessLifetime: time.Minute, Rand: bytes.NewReader(seed)}

	r1, err := b1.Build(Metadata{}, now)
	require.NoError(t, err)
	r2, err := b2.Build(Metadata{}, now)
	require.NoError(t, err)

	assert.Equal(t, r1.AccessToken, r2.AccessToken)
	assert.Equal(t, r1.RefreshToken, r2.RefreshToken)
	assert.NotEqual(t, r1.AccessToken, r1.RefreshToken)
	assert.Nil(t, r1.RefreshTokenExpiresAt, "no refresh lifetime, no refresh expiry")
}

func TestBuilder_ShortRandomSource(t *testing.T) {
	b := &Builder{AccessLifetime: time.Minute, Rand: bytes.NewReader(make([]byte, 40))}
	_, err := b.Build(Metadata{}, time.Now())
	require.Error(t, err)
}
