package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/security/password"
	"github.com/stretchr/testify/require"
)

func record(access, refresh string, refreshExp *time.Time) *repository.TokenRecord {
	return &repository.TokenRecord{
		AccessToken:           access,
		AccessTokenExpiresAt:  time.Now().Add(time.Hour),
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
		ClientID:              "c1",
		UserID:                "u1",
	}
}

func TestTokens_SaveLookupRevoke(t *testing.T) {
	ctx := context.Background()
	repo := New().Tokens()

	saved, err := repo.Save(ctx, record("a1", "r1", nil))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, "a1", saved.AccessToken)

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, saved.ID, got.ID)
	require.Equal(t, "r1", got.RefreshToken)

	got, err = repo.GetByAccess(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, saved.ID, got.ID)

	ok, err := repo.Revoke(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Revoke(ctx, "r1")
	require.NoError(t, err)
	require.False(t, ok, "second revoke must report false")

	_, err = repo.GetByRefresh(ctx, "r1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByAccess(ctx, "a1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokens_SaveConflict(t *testing.T) {
	ctx := context.Background()
	repo := New().Tokens()
	_, err := repo.Save(ctx, record("a1", "r1", nil))
	require.NoError(t, err)
	_, err = repo.Save(ctx, record("a2", "r1", nil))
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestTokens_RevokeIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := New().Tokens()
	_, err := repo.Save(ctx, record("a1", "r1", nil))
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := repo.Revoke(ctx, "r1"); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins)
}

func TestTokens_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	repo := New().Tokens()
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	_, _ = repo.Save(ctx, record("a1", "r1", &past))
	_, _ = repo.Save(ctx, record("a2", "r2", &future))
	_, _ = repo.Save(ctx, record("a3", "r3", nil))
	_, _ = repo.Save(ctx, record("a4", "r4", &future))
	_, _ = repo.Revoke(ctx, "r4")

	n, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	_, err = repo.GetByRefresh(ctx, "r3")
	require.NoError(t, err)
}

func TestClients_Lookup(t *testing.T) {
	ctx := context.Background()
	repo := New().Clients()
	_, err := repo.Create(ctx, repository.CreateClientInput{ID: "c1", Secret: "s1", GrantTypes: []string{"password"}})
	require.NoError(t, err)

	c, err := repo.Lookup(ctx, "c1", "s1")
	require.NoError(t, err)
	require.True(t, c.AllowsGrant("password"))
	require.False(t, c.AllowsGrant("refresh_token"))

	_, err = repo.Lookup(ctx, "c1", "wrong")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Lookup(ctx, "nope", "s1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Create(ctx, repository.CreateClientInput{ID: "c1", Secret: "x"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestUsers_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	repo := New().Users()
	hash, err := password.Hash(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "pw")
	require.NoError(t, err)
	_, err = repo.Create(ctx, repository.CreateUserInput{Username: "alice", Email: "Alice@Example.com", PasswordHash: hash})
	require.NoError(t, err)

	u, err := repo.VerifyCredentials(ctx, "alice", "pw", nil)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	_, err = repo.VerifyCredentials(ctx, "alice@example.com", "pw", nil)
	require.NoError(t, err, "email matches case-insensitively")

	_, err = repo.VerifyCredentials(ctx, "ALICE", "pw", nil)
	require.ErrorIs(t, err, repository.ErrNotFound, "username matches exactly")

	_, err = repo.VerifyCredentials(ctx, "alice", "bad", nil)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.VerifyCredentials(ctx, "alice", "", &repository.Bypass{AuthName: "ldap"})
	require.NoError(t, err)
}

func TestRegistrations_FindByIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := New().Registrations()
	_, _ = repo.Create(ctx, repository.CreateRegistrationInput{Username: "bob", Email: "Bob@Example.com"})
	_, _ = repo.Create(ctx, repository.CreateRegistrationInput{Username: "carol", Email: "carol@example.com", State: repository.RegistrationRejected})

	regs, err := repo.FindByIdentifier(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, repository.RegistrationPending, regs[0].State)

	regs, _ = repo.FindByIdentifier(ctx, "Bob")
	require.Empty(t, regs, "username match is exact")

	regs, _ = repo.FindByIdentifier(ctx, "carol")
	require.Len(t, regs, 1)
	require.Equal(t, repository.RegistrationRejected, regs[0].State)
}
