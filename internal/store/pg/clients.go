package pg

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	tokens "github.com/dropDatabas3/passgrant/internal/security/token"
)

type clientRepo struct{ db DB }

func (r *clientRepo) Lookup(ctx context.Context, id, secret string) (*repository.Client, error) {
	const query = `SELECT id, name, secret_hash, grant_types FROM oauth_client WHERE id = $1`

	var c repository.Client
	var secretHash string
	if err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &secretHash, &c.GrantTypes); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("pg: lookup client: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(secretHash), []byte(tokens.SHA256Base64URL(secret))) != 1 {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *clientRepo) Create(ctx context.Context, in repository.CreateClientInput) (*repository.Client, error) {
	const query = `INSERT INTO oauth_client (id, name, secret_hash, grant_types) VALUES ($1, $2, $3, $4)`

	grants := in.GrantTypes
	if grants == nil {
		grants = []string{}
	}
	if _, err := r.db.Exec(ctx, query, in.ID, in.Name, tokens.SHA256Base64URL(in.Secret), grants); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: create client: %w", err)
	}
	return &repository.Client{ID: in.ID, Name: in.Name, GrantTypes: grants}, nil
}
