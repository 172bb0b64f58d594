// Package handler implements the HTTP handlers for the Marginalia API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, bookmark.go, tag.go) but all share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mwhite/marginalia/internal/domain"
	"github.com/mwhite/marginalia/internal/service"
)

// BookmarkServicer defines the pipeline operations the bookmark handlers
// depend on. Defining the interface here (in the consumer package) follows
// the Go convention: "accept interfaces, return concrete types". It lets
// handler tests inject a mock without touching the database or service layer.
type BookmarkServicer interface {
	Create(ctx context.Context, ownerID string, in service.CreateInput) (domain.Bookmark, error)
	Update(ctx context.Context, ownerID string, id uuid.UUID, in service.UpdateInput) (domain.Bookmark, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	Resummarize(ctx context.Context, ownerID string, id uuid.UUID) error
	Get(ctx context.Context, ownerID string, id uuid.UUID) (domain.Bookmark, error)
	List(ctx context.Context, ownerID string, filter domain.BookmarkFilter, p domain.PaginationParams) (domain.BookmarkListing, error)
}

// TagServicer defines the tag operations the tag handlers depend on.
type TagServicer interface {
	List(ctx context.Context, ownerID string) ([]domain.Tag, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// Server holds the handler dependencies for all API endpoints.
type Server struct {
	bookmarks BookmarkServicer
	tags      TagServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(bookmarks BookmarkServicer, tags TagServicer) *Server {
	return &Server{bookmarks: bookmarks, tags: tags}
}

// Routes registers all authenticated API routes on r.
// The auth middleware is applied by the caller (main.go), so tests can mount
// these routes behind a stub that injects a fixed user id.
func (s *Server) Routes(r chi.Router) {
	r.Get("/bookmarks", s.ListBookmarks)
	r.Post("/bookmarks", s.CreateBookmark)
	r.Get("/bookmarks/{id}", s.GetBookmark)
	r.Put("/bookmarks/{id}", s.UpdateBookmark)
	r.Delete("/bookmarks/{id}", s.DeleteBookmark)
	r.Post("/bookmarks/{id}/resummarize", s.ResummarizeBookmark)

	r.Get("/tags", s.ListTags)
	r.Delete("/tags/{id}", s.DeleteTag)
}

// pathID parses the {id} URL parameter. The zero UUID signals a malformed id;
// handlers treat it exactly like a missing resource so invalid ids and other
// owners' ids are indistinguishable.
func pathID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil
	}
	return id
}
