// Package memory es un store en proceso que implementa los repositorios de
// domain/repository. Lo usan los tests y el modo dev (storage.driver=memory).
//
// Igual que el adapter pg, guarda solo el SHA-256 de los tokens y del secret
// de cada cliente.
package memory

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/security/password"
	tokens "github.com/dropDatabas3/passgrant/internal/security/token"
	"github.com/google/uuid"
)

type clientRow struct {
	client     repository.Client
	secretHash string
}

type userRow struct {
	user         repository.User
	passwordHash string
}

type tokenRow struct {
	rec         repository.TokenRecord // sin AccessToken/RefreshToken crudos
	accessHash  string
	refreshHash string
	revokedAt   *time.Time
}

// Store agrupa todos los repositorios bajo un único lock.
type Store struct {
	mu sync.RWMutex

	clients       map[string]*clientRow
	users         map[string]*userRow
	registrations []repository.Registration

	tokens    map[string]*tokenRow // id -> row
	byAccess  map[string]string    // sha256(access) -> id
	byRefresh map[string]string    // sha256(refresh) -> id

	now func() time.Time
}

func New() *Store {
	return &Store{
		clients:   map[string]*clientRow{},
		users:     map[string]*userRow{},
		tokens:    map[string]*tokenRow{},
		byAccess:  map[string]string{},
		byRefresh: map[string]string{},
		now:       time.Now,
	}
}

func (s *Store) Clients() repository.ClientRepository             { return clientRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Registrations() repository.RegistrationRepository { return registrationRepo{s} }
func (s *Store) Tokens() repository.TokenRepository               { return tokenRepo{s} }

// ─── clients ───

type clientRepo struct{ s *Store }

func (r clientRepo) Lookup(_ context.Context, id, secret string) (*repository.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if subtle.ConstantTimeCompare([]byte(row.secretHash), []byte(tokens.SHA256Base64URL(secret))) != 1 {
		return nil, repository.ErrNotFound
	}
	c := row.client
	c.GrantTypes = append([]string(nil), row.client.GrantTypes...)
	return &c, nil
}

func (r clientRepo) Create(_ context.Context, in repository.CreateClientInput) (*repository.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.clients[in.ID]; exists {
		return nil, repository.ErrConflict
	}
	row := &clientRow{
		client: repository.Client{
			ID:         in.ID,
			Name:       in.Name,
			GrantTypes: append([]string(nil), in.GrantTypes...),
		},
		secretHash: tokens.SHA256Base64URL(in.Secret),
	}
	r.s.clients[in.ID] = row
	c := row.client
	return &c, nil
}

// ─── users ───

type userRepo struct{ s *Store }

func (r userRepo) VerifyCredentials(_ context.Context, identifier, plain string, bypass *repository.Bypass) (*repository.User, error) {
	r.s.mu.RLock()
	row := r.s.findUser(identifier)
	r.s.mu.RUnlock()
	if row == nil {
		return nil, repository.ErrNotFound
	}
	if bypass == nil && !password.Verify(plain, row.passwordHash) {
		return nil, repository.ErrNotFound
	}
	u := row.user
	return &u, nil
}

// findUser: username exacto primero, después email sin distinguir mayúsculas.
func (s *Store) findUser(identifier string) *userRow {
	var byEmail *userRow
	for _, row := range s.users {
		if row.user.Username == identifier {
			return row
		}
		if byEmail == nil && strings.EqualFold(row.user.Email, identifier) {
			byEmail = row
		}
	}
	return byEmail
}

func (r userRepo) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.users {
		if row.user.Username == in.Username || strings.EqualFold(row.user.Email, in.Email) {
			return nil, repository.ErrConflict
		}
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := &userRow{
		user: repository.User{
			ID:            id,
			Username:      in.Username,
			Email:         in.Email,
			EmailVerified: in.EmailVerified,
			OTPSecret:     in.OTPSecret,
			CreatedAt:     r.s.now(),
		},
		passwordHash: in.PasswordHash,
	}
	r.s.users[id] = row
	u := row.user
	return &u, nil
}

func (r userRepo) SetOTPSecret(_ context.Context, userID, encrypted string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	row.user.OTPSecret = encrypted
	return nil
}

// SetBlocked cambia el flag de bloqueo (no forma parte del contrato; lo usan tests).
func (s *Store) SetBlocked(userID string, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	row.user.Blocked = blocked
	return nil
}

// ─── registrations ───

type registrationRepo struct{ s *Store }

func (r registrationRepo) FindByIdentifier(_ context.Context, identifier string) ([]repository.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []repository.Registration{}
	for _, reg := range r.s.registrations {
		if strings.EqualFold(reg.Email, identifier) || reg.Username == identifier {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r registrationRepo) Create(_ context.Context, in repository.CreateRegistrationInput) (*repository.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	state := in.State
	if state == "" {
		state = repository.RegistrationPending
	}
	reg := repository.Registration{ID: id, Username: in.Username, Email: in.Email, State: state, CreatedAt: r.s.now()}
	r.s.registrations = append(r.s.registrations, reg)
	return &reg, nil
}

// ─── tokens ───

type tokenRepo struct{ s *Store }

func (r tokenRepo) Save(_ context.Context, rec *repository.TokenRecord) (*repository.TokenRecord, error) {
	ah, rh := tokens.SHA256Base64URL(rec.AccessToken), tokens.SHA256Base64URL(rec.RefreshToken)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.byAccess[ah]; dup {
		return nil, repository.ErrConflict
	}
	if _, dup := r.s.byRefresh[rh]; dup {
		return nil, repository.ErrConflict
	}
	row := &tokenRow{rec: *rec, accessHash: ah, refreshHash: rh}
	if row.rec.ID == "" {
		row.rec.ID = uuid.NewString()
	}
	if row.rec.CreatedAt.IsZero() {
		row.rec.CreatedAt = r.s.now()
	}
	row.rec.AccessToken, row.rec.RefreshToken = "", ""
	if _, dup := r.s.tokens[row.rec.ID]; dup {
		return nil, repository.ErrConflict
	}
	r.s.tokens[row.rec.ID] = row
	r.s.byAccess[ah] = row.rec.ID
	r.s.byRefresh[rh] = row.rec.ID

	out := row.rec
	out.AccessToken, out.RefreshToken = rec.AccessToken, rec.RefreshToken
	return &out, nil
}

func (r tokenRepo) GetByRefresh(_ context.Context, refreshToken string) (*repository.TokenRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row := r.s.live(r.s.byRefresh, refreshToken)
	if row == nil {
		return nil, repository.ErrNotFound
	}
	out := row.rec
	out.RefreshToken = refreshToken
	return &out, nil
}

func (r tokenRepo) GetByAccess(_ context.Context, accessToken string) (*repository.TokenRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row := r.s.live(r.s.byAccess, accessToken)
	if row == nil {
		return nil, repository.ErrNotFound
	}
	out := row.rec
	out.AccessToken = accessToken
	return &out, nil
}

func (s *Store) live(index map[string]string, token string) *tokenRow {
	id, ok := index[tokens.SHA256Base64URL(token)]
	if !ok {
		return nil
	}
	row := s.tokens[id]
	if row == nil || row.revokedAt != nil {
		return nil
	}
	return row
}

// Revoke es un compare-and-swap bajo el lock de escritura.
func (r tokenRepo) Revoke(_ context.Context, refreshToken string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := r.s.live(r.s.byRefresh, refreshToken)
	if row == nil {
		return false, nil
	}
	now := r.s.now()
	row.revokedAt = &now
	return true, nil
}

func (r tokenRepo) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, row := range r.s.tokens {
		if row.revokedAt == nil && !row.rec.RefreshExpired(now) {
			continue
		}
		delete(r.s.byAccess, row.accessHash)
		delete(r.s.byRefresh, row.refreshHash)
		delete(r.s.tokens, id)
		n++
	}
	return n, nil
}
