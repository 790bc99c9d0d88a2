package identity

import (
	"context"
	"sort"
	"strings"
	"sync"

	goGate "github.com/MrEthical07/goGate"
)

// Memory is an in-process Store. Reads always observe the latest write, so it
// behaves like the SQL stores with respect to role freshness.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
	usage  []goGate.AuditRecord
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{users: make(map[int64]User)}
}

func (s *Memory) FindByAPIKey(ctx context.Context, key string) (goGate.Identity, error) {
	if err := ctx.Err(); err != nil {
		return goGate.Identity{}, err
	}
	if key == "" {
		return goGate.Identity{}, goGate.ErrIdentityNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.APIKey == key {
			return u.Identity(), nil
		}
	}
	return goGate.Identity{}, goGate.ErrIdentityNotFound
}

func (s *Memory) FindByID(ctx context.Context, id int64) (goGate.Identity, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return goGate.Identity{}, err
	}
	return u.Identity(), nil
}

func (s *Memory) AppendAuditRecord(ctx context.Context, rec goGate.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, rec)
	return nil
}

func (s *Memory) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := in.validate(); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			return User{}, ErrEmailTaken
		}
	}
	s.nextID++
	u := User{
		ID:           s.nextID,
		Name:         in.Name,
		Email:        in.Email,
		APIKey:       in.APIKey,
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Memory) UserByID(ctx context.Context, id int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, goGate.ErrIdentityNotFound
	}
	return u, nil
}

func (s *Memory) UserByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, goGate.ErrIdentityNotFound
}

func (s *Memory) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Memory) DeleteUser(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return goGate.ErrIdentityNotFound
	}
	delete(s.users, id)
	kept := s.usage[:0]
	for _, rec := range s.usage {
		if rec.IdentityID != id {
			kept = append(kept, rec)
		}
	}
	s.usage = kept
	return nil
}

func (s *Memory) SetRole(ctx context.Context, id int64, role goGate.Role) error {
	if !role.Valid() {
		return ErrInvalidUser
	}
	return s.update(ctx, id, func(u *User) { u.Role = role })
}

func (s *Memory) SetAPIKey(ctx context.Context, id int64, key string) error {
	return s.update(ctx, id, func(u *User) { u.APIKey = key })
}

func (s *Memory) ListUsage(ctx context.Context, userID int64, limit uint64) ([]goGate.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]goGate.AuditRecord, 0)
	for i := len(s.usage) - 1; i >= 0; i-- {
		if s.usage[i].IdentityID == userID {
			out = append(out, s.usage[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Usage returns a copy of every stored audit record in append order.
func (s *Memory) Usage() []goGate.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]goGate.AuditRecord(nil), s.usage...)
}

func (s *Memory) update(ctx context.Context, id int64, fn func(*User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return goGate.ErrIdentityNotFound
	}
	fn(&u)
	s.users[id] = u
	return nil
}
