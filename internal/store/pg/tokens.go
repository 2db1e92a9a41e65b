package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	tokens "github.com/dropDatabas3/passgrant/internal/security/token"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type tokenRepo struct{ db DB }

const tokenColumns = `id, access_token_expires_at, refresh_token_expires_at, client_id, user_id, auth_name,
		login_device, login_ip, login_date, last_activity_device, last_activity_ip, last_activity_date, created_at`

func (r *tokenRepo) Save(ctx context.Context, rec *repository.TokenRecord) (*repository.TokenRecord, error) {
	const query = `
		INSERT INTO oauth_token (
			id, access_token_hash, access_token_expires_at, refresh_token_hash, refresh_token_expires_at,
			client_id, user_id, auth_name,
			login_device, login_ip, login_date, last_activity_device, last_activity_ip, last_activity_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`

	out := *rec
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, query,
		out.ID, tokens.SHA256Base64URL(out.AccessToken), out.AccessTokenExpiresAt,
		tokens.SHA256Base64URL(out.RefreshToken), out.RefreshTokenExpiresAt,
		out.ClientID, out.UserID, out.AuthName,
		out.LoginDevice, out.LoginIP, out.LoginDate,
		out.LastActivityDevice, out.LastActivityIP, out.LastActivityDate,
	).Scan(&out.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: save token: %w", err)
	}
	return &out, nil
}

func (r *tokenRepo) GetByRefresh(ctx context.Context, refreshToken string) (*repository.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM oauth_token WHERE refresh_token_hash = $1 AND revoked_at IS NULL`
	rec, err := r.get(ctx, query, tokens.SHA256Base64URL(refreshToken))
	if err != nil {
		return nil, err
	}
	rec.RefreshToken = refreshToken
	return rec, nil
}

func (r *tokenRepo) GetByAccess(ctx context.Context, accessToken string) (*repository.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM oauth_token WHERE access_token_hash = $1 AND revoked_at IS NULL`
	rec, err := r.get(ctx, query, tokens.SHA256Base64URL(accessToken))
	if err != nil {
		return nil, err
	}
	rec.AccessToken = accessToken
	return rec, nil
}

func (r *tokenRepo) get(ctx context.Context, query, hash string) (*repository.TokenRecord, error) {
	var rec repository.TokenRecord
	var refreshExp pgtype.Timestamptz
	err := r.db.QueryRow(ctx, query, hash).Scan(
		&rec.ID, &rec.AccessTokenExpiresAt, &refreshExp, &rec.ClientID, &rec.UserID, &rec.AuthName,
		&rec.LoginDevice, &rec.LoginIP, &rec.LoginDate,
		&rec.LastActivityDevice, &rec.LastActivityIP, &rec.LastActivityDate, &rec.CreatedAt,
	)
	if err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("pg: get token: %w", err)
	}
	if refreshExp.Valid {
		t := refreshExp.Time
		rec.RefreshTokenExpiresAt = &t
	}
	return &rec, nil
}

// Revoke: el WHERE revoked_at IS NULL hace que solo un UPDATE concurrente
// afecte la fila; el resto ve RowsAffected == 0.
func (r *tokenRepo) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	const query = `UPDATE oauth_token SET revoked_at = now() WHERE refresh_token_hash = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, tokens.SHA256Base64URL(refreshToken))
	if err != nil {
		return false, fmt.Errorf("pg: revoke token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `DELETE FROM oauth_token WHERE revoked_at IS NOT NULL OR refresh_token_expires_at <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("pg: purge tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
