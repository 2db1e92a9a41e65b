package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/security/password"
	"github.com/google/uuid"
)

type userRepo struct{ db DB }

// VerifyCredentials: username exacto tiene prioridad sobre email case-insensitive.
func (r *userRepo) VerifyCredentials(ctx context.Context, identifier, plain string, bypass *repository.Bypass) (*repository.User, error) {
	const query = `
		SELECT id, username, email, password_hash, email_verified, blocked, COALESCE(otp_secret, ''), created_at
		FROM app_user
		WHERE username = $1 OR lower(email) = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1`

	var u repository.User
	var hash string
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&u.ID, &u.Username, &u.Email, &hash, &u.EmailVerified, &u.Blocked, &u.OTPSecret, &u.CreatedAt,
	)
	if err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("pg: verify credentials: %w", err)
	}
	if bypass == nil && !password.Verify(plain, hash) {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	const query = `
		INSERT INTO app_user (id, username, email, password_hash, email_verified, otp_secret)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING created_at`

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	var created time.Time
	err := r.db.QueryRow(ctx, query, id, in.Username, in.Email, in.PasswordHash, in.EmailVerified, in.OTPSecret).Scan(&created)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: create user: %w", err)
	}
	return &repository.User{
		ID:            id,
		Username:      in.Username,
		Email:         in.Email,
		EmailVerified: in.EmailVerified,
		OTPSecret:     in.OTPSecret,
		CreatedAt:     created,
	}, nil
}

func (r *userRepo) SetOTPSecret(ctx context.Context, userID, encrypted string) error {
	const query = `UPDATE app_user SET otp_secret = NULLIF($2, '') WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, userID, encrypted)
	if err != nil {
		return fmt.Errorf("pg: set otp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
