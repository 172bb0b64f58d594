package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mwhite/marginalia/internal/domain"
	"github.com/mwhite/marginalia/internal/repo"
)

// TagService implements business logic for Tag operations. Its primary
// responsibility is reconciliation: turning free-text tag input into the
// canonical set of tag rows for an owner, creating missing names on the way.
type TagService struct {
	tags  repo.TagRepo
	cache ListingCache
	log   *slog.Logger
}

// NewTagService constructs a TagService backed by the provided TagRepo.
// cache may be nil when no listing cache is configured.
func NewTagService(tags repo.TagRepo, cache ListingCache, log *slog.Logger) *TagService {
	if log == nil {
		log = slog.Default()
	}
	return &TagService{tags: tags, cache: cache, log: log}
}

// ParseTagList splits raw comma-separated tag text into clean names:
// pieces are trimmed, empties dropped, duplicates removed keeping the first
// occurrence. Empty input yields an empty slice.
func ParseTagList(raw string) []string {
	names := []string{}
	seen := map[string]struct{}{}
	for _, piece := range strings.Split(raw, ",") {
		name := strings.TrimSpace(piece)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Reconcile resolves raw tag text into the owner's canonical tag set,
// creating any names that do not exist yet. The per-name get-or-create is a
// single atomic upsert at the store, so two requests reconciling the same new
// name concurrently converge on one row. Empty input creates nothing.
func (s *TagService) Reconcile(ctx context.Context, ownerID, raw string) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	for _, name := range ParseTagList(raw) {
		tag, err := s.tags.Upsert(ctx, ownerID, name)
		if err != nil {
			return nil, fmt.Errorf("service.TagService.Reconcile: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// List returns the owner's tag vocabulary ordered by name.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TagService) List(ctx context.Context, ownerID string) ([]domain.Tag, error) {
	tags, err := s.tags.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service.TagService.List: %w", err)
	}
	if tags == nil {
		return []domain.Tag{}, nil
	}
	return tags, nil
}

// Delete removes one tag by id, scoped to the owner. A missing or not-owned
// id affects zero rows and is a silent no-op — existence of other owners'
// tags must never leak through an error.
func (s *TagService) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	if ownerID == "" || id == uuid.Nil {
		return nil
	}

	n, err := s.tags.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("service.TagService.Delete: %w", err)
	}
	if n == 0 {
		return nil
	}

	invalidateListing(ctx, s.cache, s.log, ownerID)
	return nil
}
