package goGate

import (
	"context"
	"time"
)

// Role is the ordered privilege tier of an identity. The numeric values match
// the permission column of the users table.
type Role int16

const (
	// RoleUnresolved marks an identity whose role has not been read from the
	// identity store. Session tokens attest a subject only, so identities
	// produced by VerifySession carry this value until Authorize refreshes them.
	RoleUnresolved Role = -1
	// RoleUser is the default tier for registered accounts.
	RoleUser Role = 0
	// RoleAdmin grants access to administrative routes.
	RoleAdmin Role = 1
)

// Satisfies reports whether r meets or exceeds required.
func (r Role) Satisfies(required Role) bool {
	if r == RoleUnresolved {
		return false
	}
	return r >= required
}

// Valid reports whether r is a persisted tier.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Identity is the authenticated principal attached to a request.
// Guards hold an immutable copy per request.
type Identity struct {
	ID     int64
	Role   Role
	APIKey string
}

// AuditRecord is one append-only usage entry, written after the downstream
// handler has produced its response.
type AuditRecord struct {
	IdentityID    int64     `json:"user_id"`
	APIKey        string    `json:"api_key,omitempty"`
	Path          string    `json:"request_path"`
	Method        string    `json:"request_method"`
	Timestamp     time.Time `json:"request_time"`
	SourceAddress string    `json:"request_ip"`
	StatusCode    int       `json:"status_code"`
}

// RequestContext is the per-request state threaded through the guard chain.
// It is created at pipeline entry and discarded when the request completes.
// Each field has exactly one writer and the value is never shared across
// goroutines, so it carries no lock.
type RequestContext struct {
	RequestID     string
	SourceAddress string
	Path          string
	Method        string
	APIKey        string
	Token         string
	Identity      *Identity
	ReceivedAt    time.Time

	rejection error
}

// Reject records the first rejection of the request. Later calls keep the
// original error.
func (rc *RequestContext) Reject(err error) {
	if rc == nil || err == nil || rc.rejection != nil {
		return
	}
	rc.rejection = err
}

// Rejection returns the recorded rejection, or nil while the request is admitted.
func (rc *RequestContext) Rejection() error {
	if rc == nil {
		return nil
	}
	return rc.rejection
}

// IdentityStore is the capability the gateway needs from the user database.
// Implementations return ErrIdentityNotFound on a miss and must be safe for
// concurrent use.
type IdentityStore interface {
	FindByAPIKey(ctx context.Context, key string) (Identity, error)
	FindByID(ctx context.Context, id int64) (Identity, error)
	AppendAuditRecord(ctx context.Context, rec AuditRecord) error
}

// TokenCodec signs and verifies session tokens. Verify returns the attested
// subject and fails for bad signatures, malformed input and expired tokens alike.
type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}
