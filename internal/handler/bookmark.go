package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mwhite/marginalia/internal/domain"
	"github.com/mwhite/marginalia/internal/middleware"
	"github.com/mwhite/marginalia/internal/service"
)

// bookmarkRequest is the JSON body for create and update.
// Tags is the raw comma-separated tag text, parsed by the reconciler.
type bookmarkRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

// listResponse wraps a bookmark page with its pagination metadata.
type listResponse struct {
	Data       []domain.Bookmark `json:"data"`
	Pagination pagination        `json:"pagination"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ListBookmarks handles GET /bookmarks.
// Optional query parameters: ?tag= (exact tag name), ?q= (substring over
// title/description/url), ?page= and ?limit= (defaults 1/20, limit capped at 100).
func (s *Server) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	filter := domain.BookmarkFilter{
		TagName: r.URL.Query().Get("tag"),
		Query:   r.URL.Query().Get("q"),
	}
	params := domain.NewPaginationParams(
		queryInt(r, "page"),
		queryInt(r, "limit"),
	)

	listing, err := s.bookmarks.List(r.Context(), middleware.GetUserID(r.Context()), filter, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data: listing.Bookmarks,
		Pagination: pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: listing.Total,
		},
	})
}

// CreateBookmark handles POST /bookmarks.
// The pipeline silently no-ops on a blank url; that surfaces here as 204 so
// the client learns nothing was saved without getting a hard error.
func (s *Server) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	var body bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		requestError(w, "invalid JSON body")
		return
	}

	created, err := s.bookmarks.Create(r.Context(), middleware.GetUserID(r.Context()), service.CreateInput{
		URL:         body.URL,
		Title:       body.Title,
		Description: body.Description,
		TagText:     body.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if created.ID == uuid.Nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetBookmark handles GET /bookmarks/{id}.
func (s *Server) GetBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.bookmarks.Get(r.Context(), middleware.GetUserID(r.Context()), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBookmark handles PUT /bookmarks/{id}.
// A no-op update (blank url, unknown or not-owned id) returns 204.
func (s *Server) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	var body bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		requestError(w, "invalid JSON body")
		return
	}

	updated, err := s.bookmarks.Update(r.Context(), middleware.GetUserID(r.Context()), pathID(r), service.UpdateInput{
		URL:         body.URL,
		Title:       body.Title,
		Description: body.Description,
		TagText:     body.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if updated.ID == uuid.Nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteBookmark handles DELETE /bookmarks/{id}.
// Always 204 — deleting a missing or not-owned bookmark is a harmless no-op.
func (s *Server) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.bookmarks.Delete(r.Context(), middleware.GetUserID(r.Context()), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResummarizeBookmark handles POST /bookmarks/{id}/resummarize.
// The regeneration is synchronous but has no response body; fetch failures
// leave the stored summary unchanged and still return 204.
func (s *Server) ResummarizeBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.bookmarks.Resummarize(r.Context(), middleware.GetUserID(r.Context()), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryInt parses an integer query parameter, returning nil when absent or
// malformed so NewPaginationParams falls back to its defaults.
func queryInt(r *http.Request, key string) *int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
