// Package service contains the business logic for the Marginalia API.
// The BookmarkService is the enrichment pipeline: each mutating operation
// sequences fetch → summarize → tag-reconcile → persist, degrading gracefully
// when the fetch or the summarizer fails. Services depend on repo interfaces,
// not implementations — no SQL lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mwhite/marginalia/internal/domain"
	"github.com/mwhite/marginalia/internal/repo"
	"github.com/mwhite/marginalia/internal/webpage"
)

// Fetcher retrieves a remote page's extracted metadata.
// Implemented by *webpage.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (webpage.Page, error)
}

// Summarizer reduces fetched content + title to a short summary, returning ""
// when summarization is unavailable or fails. Implemented by
// *summary.Generator (including its nil "no credential" form).
type Summarizer interface {
	Summarize(ctx context.Context, content, title string) string
}

// TagReconciler resolves free-text tag input into the owner's canonical tag
// set. Implemented by *TagService.
type TagReconciler interface {
	Reconcile(ctx context.Context, ownerID, raw string) ([]domain.Tag, error)
}

// ListingCache caches an owner's default bookmark listing.
// Implemented by *cache.ListingCache. A nil ListingCache disables caching.
type ListingCache interface {
	Get(ctx context.Context, ownerID string) (domain.BookmarkListing, bool, error)
	Set(ctx context.Context, ownerID string, listing domain.BookmarkListing) error
	Invalidate(ctx context.Context, ownerID string) error
}

// BookmarkService orchestrates the enrichment pipeline. It is the sole writer
// of bookmarks and tags; the handler layer only translates HTTP to these calls.
type BookmarkService struct {
	bookmarks  repo.BookmarkRepo
	tags       repo.TagRepo
	reconciler TagReconciler
	fetcher    Fetcher
	summarizer Summarizer
	cache      ListingCache
	log        *slog.Logger
}

// NewBookmarkService constructs the pipeline. cache may be nil (caching off);
// summarizer must be non-nil but may be the nil *summary.Generator, which
// always yields empty summaries.
func NewBookmarkService(
	bookmarks repo.BookmarkRepo,
	tags repo.TagRepo,
	reconciler TagReconciler,
	fetcher Fetcher,
	summarizer Summarizer,
	cache ListingCache,
	log *slog.Logger,
) *BookmarkService {
	if log == nil {
		log = slog.Default()
	}
	return &BookmarkService{
		bookmarks:  bookmarks,
		tags:       tags,
		reconciler: reconciler,
		fetcher:    fetcher,
		summarizer: summarizer,
		cache:      cache,
		log:        log,
	}
}

// CreateInput carries the user-supplied fields of a create request.
type CreateInput struct {
	URL         string
	Title       string
	Description string
	TagText     string
}

// UpdateInput carries the user-supplied fields of an update request.
type UpdateInput struct {
	URL         string
	Title       string
	Description string
	TagText     string
}

// defaultListingPage is the only page served through the listing cache.
var defaultListingPage = domain.PaginationParams{Page: 1, Limit: 20}

// Create runs the full enrichment pipeline for a new bookmark.
//
// A blank url or missing owner is a silent no-op: the zero Bookmark and a nil
// error come back and nothing is written. Fetch failure skips summarization
// but never aborts the create — the record is saved with the user title (or
// "Untitled") and no summary.
func (s *BookmarkService) Create(ctx context.Context, ownerID string, in CreateInput) (domain.Bookmark, error) {
	url := strings.TrimSpace(in.URL)
	if ownerID == "" || url == "" {
		return domain.Bookmark{}, nil
	}

	title := strings.TrimSpace(in.Title)
	summary := ""

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("webpage fetch failed, saving bookmark without summary", "url", url, "error", err)
		if title == "" {
			title = domain.UntitledFallback
		}
	} else {
		if title == "" {
			title = page.Title // already "Untitled" when the page has none
		}
		summary = s.summarizer.Summarize(ctx, page.Content, page.Title)
	}

	tags, err := s.reconciler.Reconcile(ctx, ownerID, in.TagText)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Create: %w", err)
	}

	created, err := s.bookmarks.Create(ctx, domain.Bookmark{
		OwnerID:     ownerID,
		URL:         url,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Summary:     summary,
	})
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Create: %w", err)
	}

	if len(tags) > 0 {
		if err := s.bookmarks.SetTags(ctx, created.ID, tagIDs(tags)); err != nil {
			return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Create: %w", err)
		}
	}
	created.Tags = tags

	invalidateListing(ctx, s.cache, s.log, ownerID)
	return created, nil
}

// Update re-runs enrichment for an existing bookmark.
//
// Tags are reconciled before anything else, independent of fetch outcome. The
// summary is regenerated only when none exists yet or the url changed; an
// unchanged url with an existing summary performs no outbound fetch. The
// write is scoped by (id, owner) — a zero-row update means the bookmark is
// not the caller's, and the operation quietly unwinds, sweeping any tags the
// reconcile step just created.
func (s *BookmarkService) Update(ctx context.Context, ownerID string, id uuid.UUID, in UpdateInput) (domain.Bookmark, error) {
	url := strings.TrimSpace(in.URL)
	if ownerID == "" || id == uuid.Nil || url == "" {
		return domain.Bookmark{}, nil
	}

	tags, err := s.reconciler.Reconcile(ctx, ownerID, in.TagText)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Update: %w", err)
	}

	existing, err := s.bookmarks.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.sweepOrphans(ctx, ownerID)
			return domain.Bookmark{}, nil
		}
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Update: %w", err)
	}

	summary := existing.Summary
	if existing.Summary == "" || existing.URL != url {
		page, ferr := s.fetcher.Fetch(ctx, url)
		if ferr != nil {
			s.log.Warn("webpage refetch failed, keeping previous summary", "url", url, "error", ferr)
		} else if fresh := s.summarizer.Summarize(ctx, page.Content, page.Title); fresh != "" {
			summary = fresh
		}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = domain.UntitledFallback
	}

	updated := domain.Bookmark{
		ID:          id,
		OwnerID:     ownerID,
		URL:         url,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Summary:     summary,
		CreatedAt:   existing.CreatedAt,
	}

	n, err := s.bookmarks.Update(ctx, updated)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Update: %w", err)
	}
	if n > 0 {
		if err := s.bookmarks.SetTags(ctx, id, tagIDs(tags)); err != nil {
			return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Update: %w", err)
		}
		updated.Tags = tags
	}

	s.sweepOrphans(ctx, ownerID)
	invalidateListing(ctx, s.cache, s.log, ownerID)

	if n == 0 {
		return domain.Bookmark{}, nil
	}
	return updated, nil
}

// Delete removes a bookmark scoped by (id, owner). Deleting a missing or
// not-owned id affects zero rows and is a harmless no-op either way.
func (s *BookmarkService) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	if ownerID == "" || id == uuid.Nil {
		return nil
	}

	if _, err := s.bookmarks.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("service.BookmarkService.Delete: %w", err)
	}

	s.sweepOrphans(ctx, ownerID)
	invalidateListing(ctx, s.cache, s.log, ownerID)
	return nil
}

// Resummarize regenerates the stored summary on explicit user request.
// A missing bookmark is a no-op; a failed fetch leaves the stored summary
// untouched and is only logged.
func (s *BookmarkService) Resummarize(ctx context.Context, ownerID string, id uuid.UUID) error {
	if ownerID == "" || id == uuid.Nil {
		return nil
	}

	b, err := s.bookmarks.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service.BookmarkService.Resummarize: %w", err)
	}

	page, err := s.fetcher.Fetch(ctx, b.URL)
	if err != nil {
		s.log.Warn("webpage fetch failed, summary unchanged", "url", b.URL, "error", err)
		return nil
	}

	title := page.Title
	if title == domain.UntitledFallback && b.Title != "" {
		title = b.Title
	}
	summary := s.summarizer.Summarize(ctx, page.Content, title)

	if _, err := s.bookmarks.UpdateSummary(ctx, ownerID, id, summary); err != nil {
		return fmt.Errorf("service.BookmarkService.Resummarize: %w", err)
	}

	invalidateListing(ctx, s.cache, s.log, ownerID)
	return nil
}

// Get returns a single bookmark with its tags, scoped to the owner.
// Returns domain.ErrNotFound when absent or owned by someone else.
func (s *BookmarkService) Get(ctx context.Context, ownerID string, id uuid.UUID) (domain.Bookmark, error) {
	b, err := s.bookmarks.GetByID(ctx, ownerID, id)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Get: %w", err)
	}

	tags, err := s.tags.ListByBookmark(ctx, b.ID)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("service.BookmarkService.Get: %w", err)
	}
	b.Tags = tags
	return b, nil
}

// List returns one page of the owner's bookmarks with tags attached, newest
// first. The unfiltered default page is served through the listing cache when
// one is configured; cache faults degrade to a direct read.
func (s *BookmarkService) List(ctx context.Context, ownerID string, filter domain.BookmarkFilter, p domain.PaginationParams) (domain.BookmarkListing, error) {
	if ownerID == "" {
		return domain.BookmarkListing{Bookmarks: []domain.Bookmark{}}, nil
	}

	cacheable := s.cache != nil && filter.IsZero() && p == defaultListingPage
	if cacheable {
		listing, ok, err := s.cache.Get(ctx, ownerID)
		if err != nil {
			s.log.Warn("listing cache read failed", "error", err)
		} else if ok {
			return listing, nil
		}
	}

	bookmarks, total, err := s.bookmarks.List(ctx, ownerID, filter, p)
	if err != nil {
		return domain.BookmarkListing{}, fmt.Errorf("service.BookmarkService.List: %w", err)
	}

	for i := range bookmarks {
		tags, err := s.tags.ListByBookmark(ctx, bookmarks[i].ID)
		if err != nil {
			return domain.BookmarkListing{}, fmt.Errorf("service.BookmarkService.List: %w", err)
		}
		bookmarks[i].Tags = tags
	}

	listing := domain.BookmarkListing{Bookmarks: bookmarks, Total: total}
	if cacheable {
		if err := s.cache.Set(ctx, ownerID, listing); err != nil {
			s.log.Warn("listing cache write failed", "error", err)
		}
	}
	return listing, nil
}

// sweepOrphans removes the owner's unused tags. The sweep is best-effort and
// deliberately not transactional with the triggering write; a failure is
// logged and the next mutation sweeps again.
func (s *BookmarkService) sweepOrphans(ctx context.Context, ownerID string) {
	if _, err := s.tags.DeleteOrphans(ctx, ownerID); err != nil {
		s.log.Warn("orphan tag cleanup failed", "owner", ownerID, "error", err)
	}
}

// invalidateListing drops the owner's cached listing after a mutation.
// Shared by BookmarkService and TagService.
func invalidateListing(ctx context.Context, cache ListingCache, log *slog.Logger, ownerID string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, ownerID); err != nil {
		log.Warn("listing cache invalidation failed", "owner", ownerID, "error", err)
	}
}

// tagIDs projects a tag slice to its ids for association writes.
func tagIDs(tags []domain.Tag) []uuid.UUID {
	ids := make([]uuid.UUID, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}
