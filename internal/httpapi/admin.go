package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/identity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// Password is optional. Without one the account gets a random password
	// and is usable through its API key only.
	Password string `json:"password"`
}

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, "list_users", err)
		return
	}
	if users == nil {
		users = []identity.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	u, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || !emailPattern.MatchString(req.Email) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	secret := req.Password
	if secret == "" {
		secret = uuid.NewString()
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	u, err := s.store.CreateUser(r.Context(), identity.NewUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         goGate.RoleUser,
		APIKey:       identity.NewAPIKey(),
	})
	if errors.Is(err, identity.ErrEmailTaken) {
		w.WriteHeader(http.StatusConflict)
		return
	}
	if err != nil {
		s.fail(w, r, "create_user", err)
		return
	}
	writeJSON(w, http.StatusCreated, u.ID)
}

func (s *server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil && !errors.Is(err, goGate.ErrIdentityNotFound) {
		s.fail(w, r, "delete_user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changePermission takes effect on the target's next guarded request, since
// the role guard re-reads the store every time.
func (s *server) changePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	perm, err := strconv.Atoi(chi.URLParam(r, "permission"))
	if err != nil || !goGate.Role(perm).Valid() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.respondUpdate(w, r, "change_permission", s.store.SetRole(r.Context(), id, goGate.Role(perm)))
}

func (s *server) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.respondUpdate(w, r, "revoke_api_key", s.store.SetAPIKey(r.Context(), id, ""))
}

func (s *server) rotateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.respondUpdate(w, r, "rotate_api_key", s.store.SetAPIKey(r.Context(), id, identity.NewAPIKey()))
}

func (s *server) respondUpdate(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, goGate.ErrIdentityNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		s.fail(w, r, op, err)
	}
}
