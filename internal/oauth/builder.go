package oauth

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	tokens "github.com/dropDatabas3/passgrant/internal/security/token"
	"github.com/google/uuid"
)

const tokenBytes = 32

// Metadata is the device/IP/time information stamped on a token record.
type Metadata struct {
	LoginDevice string
	LoginIP     string
	LoginDate   time.Time

	LastActivityDevice string
	LastActivityIP     string
	LastActivityDate   time.Time
}

// freshMetadata is used by the password grant: login and last activity are
// the same request.
func freshMetadata(device, ip string, now time.Time) Metadata {
	return Metadata{
		LoginDevice:        device,
		LoginIP:            ip,
		LoginDate:          now,
		LastActivityDevice: device,
		LastActivityIP:     ip,
		LastActivityDate:   now,
	}
}

// Builder mints token records. It performs no I/O.
type Builder struct {
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// Build returns an unsaved record with fresh access and refresh tokens.
func (b *Builder) Build(md Metadata, now time.Time) (*repository.TokenRecord, error) {
	src := b.Rand
	if src == nil {
		src = rand.Reader
	}
	access, err := tokens.GenerateOpaqueTokenFrom(src, tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("oauth: generate access token: %w", err)
	}
	refresh, err := tokens.GenerateOpaqueTokenFrom(src, tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("oauth: generate refresh token: %w", err)
	}

	rec := &repository.TokenRecord{
		ID:                   uuid.NewString(),
		AccessToken:          access,
		AccessTokenExpiresAt: now.Add(b.AccessLifetime),
		RefreshToken:         refresh,
		LoginDevice:          md.LoginDevice,
		LoginIP:              md.LoginIP,
		LoginDate:            md.LoginDate,
		LastActivityDevice:   md.LastActivityDevice,
		LastActivityIP:       md.LastActivityIP,
		LastActivityDate:     md.LastActivityDate,
		CreatedAt:            now,
	}
	if b.RefreshLifetime > 0 {
		exp := now.Add(b.RefreshLifetime)
		rec.RefreshTokenExpiresAt = &exp
	}
	return rec, nil
}
