package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
	"github.com/dropDatabas3/passgrant/internal/security/password"
	"github.com/dropDatabas3/passgrant/internal/security/secretbox"
)

type BootstrapClient struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Secret     string   `yaml:"secret"`
	GrantTypes []string `yaml:"grant_types"`
}

type BootstrapUser struct {
	Username      string `yaml:"username"`
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	EmailVerified bool   `yaml:"email_verified"`
	// OTPSecret en base32 plano; se cifra con secretbox al sembrar.
	OTPSecret string `yaml:"otp_secret"`
}

type BootstrapRegistration struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	State    string `yaml:"state"`
}

// Bootstrap son fixtures para levantar un entorno dev sin CLI.
type Bootstrap struct {
	Clients       []BootstrapClient       `yaml:"clients"`
	Users         []BootstrapUser         `yaml:"users"`
	Registrations []BootstrapRegistration `yaml:"registrations"`
}

func (b Bootstrap) Empty() bool {
	return len(b.Clients) == 0 && len(b.Users) == 0 && len(b.Registrations) == 0
}

// Seed carga los fixtures. Los duplicados (ErrConflict) se ignoran para que
// sea idempotente sobre postgres.
func Seed(ctx context.Context, s *Stores, box *secretbox.Box, b Bootstrap) error {
	log := logger.From(ctx).With(logger.Component("bootstrap"))

	for _, c := range b.Clients {
		_, err := s.Clients.Create(ctx, repository.CreateClientInput{ID: c.ID, Name: c.Name, Secret: c.Secret, GrantTypes: c.GrantTypes})
		if err != nil && !repository.IsConflict(err) {
			return fmt.Errorf("seed client %s: %w", c.ID, err)
		}
	}

	for _, u := range b.Users {
		hash, err := password.Hash(password.Default, u.Password)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		var otp string
		if u.OTPSecret != "" {
			if box == nil {
				return fmt.Errorf("seed user %s: otp_secret requires a secretbox master key", u.Username)
			}
			if otp, err = box.Seal(u.OTPSecret); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
		}
		_, err = s.Users.Create(ctx, repository.CreateUserInput{
			Username:      u.Username,
			Email:         u.Email,
			PasswordHash:  hash,
			EmailVerified: u.EmailVerified,
			OTPSecret:     otp,
		})
		if err != nil && !repository.IsConflict(err) {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	for _, r := range b.Registrations {
		existing, err := s.Registrations.FindByIdentifier(ctx, r.Email)
		if err != nil {
			return fmt.Errorf("seed registration %s: %w", r.Email, err)
		}
		if hasRegistration(existing, r) {
			continue
		}
		_, err = s.Registrations.Create(ctx, repository.CreateRegistrationInput{
			Username: r.Username,
			Email:    r.Email,
			State:    repository.RegistrationState(r.State),
		})
		if err != nil {
			return fmt.Errorf("seed registration %s: %w", r.Email, err)
		}
	}

	log.Info("bootstrap fixtures loaded",
		logger.Int("clients", len(b.Clients)),
		logger.Int("users", len(b.Users)),
		logger.Int("registrations", len(b.Registrations)))
	return nil
}

func hasRegistration(rs []repository.Registration, r BootstrapRegistration) bool {
	for _, x := range rs {
		if x.Username == r.Username && strings.EqualFold(x.Email, r.Email) {
			return true
		}
	}
	return false
}
