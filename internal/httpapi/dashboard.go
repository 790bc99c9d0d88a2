package httpapi

import (
	"math/rand/v2"
	"net/http"
	"strconv"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/identity"
	"github.com/go-chi/chi/v5"
)

const maxUsagePage = 1000

func (s *server) caller(r *http.Request) (goGate.Identity, bool) {
	return goGate.IdentityFrom(r.Context())
}

func (s *server) verify(w http.ResponseWriter, r *http.Request) {
	id, ok := s.caller(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, id.ID)
}

func (s *server) refreshOwnAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := s.caller(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err := s.store.SetAPIKey(r.Context(), id.ID, identity.NewAPIKey()); err != nil {
		s.fail(w, r, "refresh_api_key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) usage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.caller(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	size, err := strconv.ParseUint(chi.URLParam(r, "size"), 10, 64)
	if err != nil || size == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if size > maxUsagePage {
		size = maxUsagePage
	}

	records, err := s.store.ListUsage(r.Context(), id.ID, size)
	if err != nil {
		s.fail(w, r, "usage", err)
		return
	}
	if records == nil {
		records = []goGate.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) randomNumber(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, strconv.FormatInt(int64(s.random()), 10))
}

func randomInt32() int32 {
	return rand.Int32()
}
