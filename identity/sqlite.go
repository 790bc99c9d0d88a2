package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	goGate "github.com/MrEthical07/goGate"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by an embedded SQLite database.
type SQLite struct {
	db *sqlx.DB
	q  queries
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path. Use ":memory:" for a
// throwaway database. Connections are limited to one so an in-memory database
// is shared by every caller.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("identity: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("identity: ping sqlite: %w", err)
	}
	return NewSQLite(db), nil
}

// NewSQLite wraps an existing sqlx handle.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db, q: newQueries(sq.Question)}
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range SQLiteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("identity: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLite) get(ctx context.Context, op string, dest interface{}, query string, args []interface{}) error {
	err := s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return goGate.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("identity: %s: %w", op, err)
	}
	return nil
}

func (s *SQLite) FindByAPIKey(ctx context.Context, key string) (goGate.Identity, error) {
	if key == "" {
		return goGate.Identity{}, goGate.ErrIdentityNotFound
	}
	query, args, err := s.q.identityByAPIKey(key)
	if err != nil {
		return goGate.Identity{}, err
	}
	var row identityRow
	if err := s.get(ctx, "find by api key", &row, query, args); err != nil {
		return goGate.Identity{}, err
	}
	return row.identity(), nil
}

func (s *SQLite) FindByID(ctx context.Context, id int64) (goGate.Identity, error) {
	query, args, err := s.q.identityByID(id)
	if err != nil {
		return goGate.Identity{}, err
	}
	var row identityRow
	if err := s.get(ctx, "find by id", &row, query, args); err != nil {
		return goGate.Identity{}, err
	}
	return row.identity(), nil
}

func (s *SQLite) AppendAuditRecord(ctx context.Context, rec goGate.AuditRecord) error {
	query, args, err := s.q.insertUsage(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("identity: append audit record: %w", err)
	}
	return nil
}

func (s *SQLite) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if err := in.validate(); err != nil {
		return User{}, err
	}
	query, args, err := s.q.insertUser(in)
	if err != nil {
		return User{}, err
	}
	var id int64
	if err := s.db.GetContext(ctx, &id, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(sqliteErr.Error(), "users.email") {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("identity: create user: %w", err)
	}
	return User{ID: id, Name: in.Name, Email: in.Email, APIKey: in.APIKey, Role: in.Role, PasswordHash: in.PasswordHash}, nil
}

func (s *SQLite) UserByID(ctx context.Context, id int64) (User, error) {
	query, args, err := s.q.userByID(id)
	if err != nil {
		return User{}, err
	}
	var row userRow
	if err := s.get(ctx, "user by id", &row, query, args); err != nil {
		return User{}, err
	}
	return row.user(), nil
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (User, error) {
	query, args, err := s.q.userByEmail(email)
	if err != nil {
		return User{}, err
	}
	var row userRow
	if err := s.get(ctx, "user by email", &row, query, args); err != nil {
		return User{}, err
	}
	return row.user(), nil
}

func (s *SQLite) ListUsers(ctx context.Context) ([]User, error) {
	query, args, err := s.q.listUsers()
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

// DeleteUser removes the user and its usage history in one transaction.
func (s *SQLite) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("identity: delete user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.q.deleteUsage(id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("identity: delete usage: %w", err)
	}

	query, args, err = s.q.deleteUser(id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("identity: delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return goGate.ErrIdentityNotFound
	}
	return tx.Commit()
}

func (s *SQLite) SetRole(ctx context.Context, id int64, role goGate.Role) error {
	if !role.Valid() {
		return ErrInvalidUser
	}
	query, args, err := s.q.setRole(id, role)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "set role", query, args)
}

func (s *SQLite) SetAPIKey(ctx context.Context, id int64, key string) error {
	query, args, err := s.q.setAPIKey(id, key)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "set api key", query, args)
}

func (s *SQLite) ListUsage(ctx context.Context, userID int64, limit uint64) ([]goGate.AuditRecord, error) {
	query, args, err := s.q.listUsage(userID, limit)
	if err != nil {
		return nil, err
	}
	var rows []usageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("identity: list usage: %w", err)
	}
	records := make([]goGate.AuditRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (s *SQLite) execOne(ctx context.Context, op, query string, args []interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("identity: %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("identity: %s: %w", op, err)
	}
	if n == 0 {
		return goGate.ErrIdentityNotFound
	}
	return nil
}
