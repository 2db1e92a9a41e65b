package repository

import (
	"context"
	"time"
)

// TokenRecord es un par access/refresh emitido por un grant.
type TokenRecord struct {
	ID string

	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt *time.Time // nil = no expira

	ClientID string
	UserID   string
	// AuthName identifica el método externo (plugin) con el que se autenticó; vacío = local.
	AuthName string

	LoginDevice string
	LoginIP     string
	LoginDate   time.Time

	LastActivityDevice string
	LastActivityIP     string
	LastActivityDate   time.Time

	CreatedAt time.Time
}

// RefreshExpired reporta si el refresh token ya no sirve en now.
// Vence exactamente en RefreshTokenExpiresAt.
func (t *TokenRecord) RefreshExpired(now time.Time) bool {
	return t.RefreshTokenExpiresAt != nil && !now.Before(*t.RefreshTokenExpiresAt)
}

// AccessExpired reporta si el access token ya no sirve en now.
func (t *TokenRecord) AccessExpired(now time.Time) bool {
	return !now.Before(t.AccessTokenExpiresAt)
}

// TokenRepository es el token store.
type TokenRepository interface {
	// Save persiste un registro nuevo. Retorna ErrConflict si algún token colisiona.
	Save(ctx context.Context, rec *TokenRecord) (*TokenRecord, error)

	// GetByRefresh busca un registro no revocado por su refresh token.
	// Retorna ErrNotFound si no existe o fue revocado.
	GetByRefresh(ctx context.Context, refreshToken string) (*TokenRecord, error)

	// GetByAccess busca un registro no revocado por su access token.
	GetByAccess(ctx context.Context, accessToken string) (*TokenRecord, error)

	// Revoke marca el registro como revocado si todavía no lo estaba.
	// Retorna true solo para la llamada que efectivamente lo revocó;
	// dos llamadas concurrentes nunca obtienen true ambas.
	Revoke(ctx context.Context, refreshToken string) (bool, error)

	// PurgeExpired borra registros revocados y registros cuyo refresh venció
	// antes de now. Retorna cuántos borró.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
