// Package store abre el backend configurado y expone los repositorios que
// consume el grant engine.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/store/memory"
	"github.com/dropDatabas3/passgrant/internal/store/pg"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	Driver      string // "memory" | "postgres"
	DSN         string
	MaxConns    int32
	MinConns    int32
	AutoMigrate bool
}

// Stores es el conjunto de repositorios de un backend.
type Stores struct {
	Driver        string
	Clients       repository.ClientRepository
	Users         repository.UserRepository
	Registrations repository.RegistrationRepository
	Tokens        repository.TokenRepository
	// Pool es el pool de postgres (nil en memoria); lo usa el collector de métricas.
	Pool *pgxpool.Pool

	ping          func(context.Context) error
	schemaVersion func(context.Context) (int64, error)
	migrate       func(context.Context) error
	close         func()
}

// Open conecta el backend; con AutoMigrate aplica migraciones pendientes.
func Open(ctx context.Context, cfg Config) (*Stores, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory", "":
		return FromMemory(memory.New()), nil
	case "postgres", "pg", "postgresql":
		s, err := pg.Open(ctx, pg.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return &Stores{
			Driver:        "postgres",
			Clients:       s.Clients(),
			Users:         s.Users(),
			Registrations: s.Registrations(),
			Tokens:        s.Tokens(),
			Pool:          s.Pool(),
			ping:          s.Ping,
			schemaVersion: s.SchemaVersion,
			migrate:       s.Migrate,
			close:         s.Close,
		}, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver: %s", cfg.Driver)
	}
}

// FromMemory envuelve un store en memoria (tests y modo dev).
func FromMemory(m *memory.Store) *Stores {
	return &Stores{
		Driver:        "memory",
		Clients:       m.Clients(),
		Users:         m.Users(),
		Registrations: m.Registrations(),
		Tokens:        m.Tokens(),
	}
}

func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// SchemaVersion retorna la versión de migración aplicada (0 en memoria).
func (s *Stores) SchemaVersion(ctx context.Context) (int64, error) {
	if s.schemaVersion == nil {
		return 0, nil
	}
	return s.schemaVersion(ctx)
}

// Migrate aplica migraciones; no-op en memoria.
func (s *Stores) Migrate(ctx context.Context) error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(ctx)
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}
