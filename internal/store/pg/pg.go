// Package pg implementa los repositorios de domain/repository sobre PostgreSQL
// usando pgxpool. El schema lo maneja goose con migraciones embebidas.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/store/pg/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DB es el subconjunto de pgxpool.Pool que usan los repos.
// pgxmock.PgxPoolIface lo satisface, lo que permite testear sin base.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config de conexión.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// Store agrupa los repos y la conexión.
type Store struct {
	db   DB
	pool *pgxpool.Pool
	sql  *sql.DB // wrapper database/sql sobre el pool, solo para goose
}

// New arma un Store sobre una conexión existente (tests con pgxmock).
func New(db DB) *Store { return &Store{db: db} }

// Open crea el pool y verifica la conexión.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 2
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Store{db: pool, pool: pool, sql: stdlib.OpenDBFromPool(pool)}, nil
}

func (s *Store) Clients() repository.ClientRepository             { return &clientRepo{db: s.db} }
func (s *Store) Users() repository.UserRepository                 { return &userRepo{db: s.db} }
func (s *Store) Registrations() repository.RegistrationRepository { return &registrationRepo{db: s.db} }
func (s *Store) Tokens() repository.TokenRepository               { return &tokenRepo{db: s.db} }

// Pool es nil en stores armados con New.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s.sql != nil {
		_ = s.sql.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) gooseDB() (*sql.DB, error) {
	if s.sql == nil {
		return nil, errors.New("pg: migrations need a pool-backed store")
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return nil, err
	}
	return s.sql, nil
}

// Migrate aplica las migraciones pendientes.
func (s *Store) Migrate(ctx context.Context) error {
	db, err := s.gooseDB()
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("pg: migrate: %w", err)
	}
	return nil
}

// SchemaVersion retorna la última migración aplicada.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	db, err := s.gooseDB()
	if err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

// isUniqueViolation detecta SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// notFound mapea pgx.ErrNoRows al error de dominio.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
