package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/google/uuid"
)

type registrationRepo struct{ db DB }

func (r *registrationRepo) FindByIdentifier(ctx context.Context, identifier string) ([]repository.Registration, error) {
	const query = `
		SELECT id, username, email, state, created_at
		FROM user_registration
		WHERE lower(email) = lower($1) OR username = $1`

	rows, err := r.db.Query(ctx, query, identifier)
	if err != nil {
		return nil, fmt.Errorf("pg: find registrations: %w", err)
	}
	defer rows.Close()

	out := []repository.Registration{}
	for rows.Next() {
		var reg repository.Registration
		var state string
		if err := rows.Scan(&reg.ID, &reg.Username, &reg.Email, &state, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan registration: %w", err)
		}
		reg.State = repository.RegistrationState(state)
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: find registrations: %w", err)
	}
	return out, nil
}

func (r *registrationRepo) Create(ctx context.Context, in repository.CreateRegistrationInput) (*repository.Registration, error) {
	const query = `
		INSERT INTO user_registration (id, username, email, state)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	state := in.State
	if state == "" {
		state = repository.RegistrationPending
	}
	var created time.Time
	if err := r.db.QueryRow(ctx, query, id, in.Username, in.Email, string(state)).Scan(&created); err != nil {
		return nil, fmt.Errorf("pg: create registration: %w", err)
	}
	return &repository.Registration{ID: id, Username: in.Username, Email: in.Email, State: state, CreatedAt: created}, nil
}
