package identity

import (
	"context"
	"errors"
	"strings"

	goGate "github.com/MrEthical07/goGate"
	"github.com/google/uuid"
)

var (
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidUser is returned by CreateUser for incomplete input.
	ErrInvalidUser = errors.New("invalid user")
)

// User is a full account row.
type User struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	APIKey       string      `json:"api_key,omitempty"`
	Role         goGate.Role `json:"permission"`
	PasswordHash string      `json:"-"`
}

// Identity projects u onto the principal type used by the guards.
func (u User) Identity() goGate.Identity {
	return goGate.Identity{ID: u.ID, Role: u.Role, APIKey: u.APIKey}
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         goGate.Role
	APIKey       string
}

func (n NewUser) validate() error {
	if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.Email) == "" || n.PasswordHash == "" {
		return ErrInvalidUser
	}
	if !n.Role.Valid() {
		return ErrInvalidUser
	}
	return nil
}

// Store is the full capability set of a user database. It satisfies
// goGate.IdentityStore.
type Store interface {
	goGate.IdentityStore

	CreateUser(ctx context.Context, in NewUser) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id int64) error
	SetRole(ctx context.Context, id int64, role goGate.Role) error
	// SetAPIKey replaces the user's API key. An empty key revokes it.
	SetAPIKey(ctx context.Context, id int64, key string) error
	// ListUsage returns the user's latest audit records, newest first.
	ListUsage(ctx context.Context, userID int64, limit uint64) ([]goGate.AuditRecord, error)
}

// NewAPIKey returns a fresh random API key.
func NewAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
