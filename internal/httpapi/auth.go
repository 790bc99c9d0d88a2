package httpapi

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/identity"
	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) ping(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "pong")
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeText(w, http.StatusBadRequest, "Invalid email address.")
		return
	}

	_, err := s.store.UserByEmail(r.Context(), req.Email)
	switch {
	case err == nil:
		writeText(w, http.StatusConflict, "User with this email already exists.")
		return
	case !errors.Is(err, goGate.ErrIdentityNotFound):
		s.logger.Warn("register lookup failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Registration failed.")
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Registration failed.")
		return
	}
	_, err = s.store.CreateUser(r.Context(), identity.NewUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         goGate.RoleUser,
		APIKey:       identity.NewAPIKey(),
	})
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		writeText(w, http.StatusConflict, "User with this email already exists.")
	case err != nil:
		s.logger.Warn("register failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Registration failed.")
	default:
		writeText(w, http.StatusOK, "User registered successfully.")
	}
}

// login answers 401 for unknown emails and wrong passwords alike.
func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	u, err := s.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, goGate.ErrIdentityNotFound) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.fail(w, r, "login", err)
		return
	}

	ok, err := s.hasher.Verify(req.Password, u.PasswordHash)
	if err != nil || !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := s.gw.IssueSession(u.ID)
	if err != nil {
		s.fail(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}
