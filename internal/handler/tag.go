package handler

import (
	"net/http"

	"github.com/mwhite/marginalia/internal/middleware"
)

// ListTags handles GET /tags.
// Returns the caller's full tag vocabulary ordered by name. Because of the
// orphan sweep this is always exactly the set of tags in use.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// DeleteTag handles DELETE /tags/{id}.
// Always 204 — deleting a missing or not-owned tag is a harmless no-op.
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.tags.Delete(r.Context(), middleware.GetUserID(r.Context()), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
