package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	goGate "github.com/MrEthical07/goGate"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	db   pgxDB
	pool *pgxpool.Pool
	q    queries
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an existing pool. The pool is closed by Close.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool, q: newQueries(sq.Dollar)}
}

// OpenPostgres connects to dsn and verifies the connection with a ping.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("identity: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("identity: open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("identity: ping: %w", err)
	}
	return NewPostgres(pool), nil
}

// Close releases the pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the schema if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range PostgresSchema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("identity: migrate: %w", err)
		}
	}
	return nil
}

func pgCollectOne[T any](ctx context.Context, db pgxDB, query string, args []interface{}) (T, error) {
	var zero T
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return zero, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, goGate.ErrIdentityNotFound
	}
	return row, err
}

func (s *Postgres) FindByAPIKey(ctx context.Context, key string) (goGate.Identity, error) {
	if key == "" {
		return goGate.Identity{}, goGate.ErrIdentityNotFound
	}
	query, args, err := s.q.identityByAPIKey(key)
	if err != nil {
		return goGate.Identity{}, err
	}
	row, err := pgCollectOne[identityRow](ctx, s.db, query, args)
	if err != nil {
		return goGate.Identity{}, wrapLookup("find by api key", err)
	}
	return row.identity(), nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (goGate.Identity, error) {
	query, args, err := s.q.identityByID(id)
	if err != nil {
		return goGate.Identity{}, err
	}
	row, err := pgCollectOne[identityRow](ctx, s.db, query, args)
	if err != nil {
		return goGate.Identity{}, wrapLookup("find by id", err)
	}
	return row.identity(), nil
}

func (s *Postgres) AppendAuditRecord(ctx context.Context, rec goGate.AuditRecord) error {
	query, args, err := s.q.insertUsage(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("identity: append audit record: %w", err)
	}
	return nil
}

func (s *Postgres) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if err := in.validate(); err != nil {
		return User{}, err
	}
	query, args, err := s.q.insertUser(in)
	if err != nil {
		return User{}, err
	}
	var id int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("identity: create user: %w", err)
	}
	return User{ID: id, Name: in.Name, Email: in.Email, APIKey: in.APIKey, Role: in.Role, PasswordHash: in.PasswordHash}, nil
}

func (s *Postgres) UserByID(ctx context.Context, id int64) (User, error) {
	query, args, err := s.q.userByID(id)
	if err != nil {
		return User{}, err
	}
	row, err := pgCollectOne[userRow](ctx, s.db, query, args)
	if err != nil {
		return User{}, wrapLookup("user by id", err)
	}
	return row.user(), nil
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	query, args, err := s.q.userByEmail(email)
	if err != nil {
		return User{}, err
	}
	row, err := pgCollectOne[userRow](ctx, s.db, query, args)
	if err != nil {
		return User{}, wrapLookup("user by email", err)
	}
	return row.user(), nil
}

func (s *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	query, args, err := s.q.listUsers()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	users := make([]User, 0, len(list))
	for _, r := range list {
		users = append(users, r.user())
	}
	return users, nil
}

func (s *Postgres) DeleteUser(ctx context.Context, id int64) error {
	query, args, err := s.q.deleteUser(id)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete user", query, args)
}

func (s *Postgres) SetRole(ctx context.Context, id int64, role goGate.Role) error {
	if !role.Valid() {
		return ErrInvalidUser
	}
	query, args, err := s.q.setRole(id, role)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "set role", query, args)
}

func (s *Postgres) SetAPIKey(ctx context.Context, id int64, key string) error {
	query, args, err := s.q.setAPIKey(id, key)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "set api key", query, args)
}

func (s *Postgres) ListUsage(ctx context.Context, userID int64, limit uint64) ([]goGate.AuditRecord, error) {
	query, args, err := s.q.listUsage(userID, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("identity: list usage: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[usageRow])
	if err != nil {
		return nil, fmt.Errorf("identity: list usage: %w", err)
	}
	records := make([]goGate.AuditRecord, 0, len(list))
	for _, r := range list {
		records = append(records, r.record())
	}
	return records, nil
}

func (s *Postgres) execOne(ctx context.Context, op, query string, args []interface{}) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("identity: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return goGate.ErrIdentityNotFound
	}
	return nil
}

func wrapLookup(op string, err error) error {
	if errors.Is(err, goGate.ErrIdentityNotFound) {
		return err
	}
	return fmt.Errorf("identity: %s: %w", op, err)
}
