package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mwhite/marginalia/internal/domain"
)

// TagRepo defines the persistence operations for Tags and the bookmark_tags
// junction table. Tag identity is (owner_id, name); all operations are scoped
// to one owner.
type TagRepo interface {
	// Upsert inserts a tag for (ownerID, name), or returns the existing tag
	// when the pair already exists. The insert-or-return is a single atomic
	// statement, safe against concurrent reconciliation of the same name.
	Upsert(ctx context.Context, ownerID, name string) (domain.Tag, error)

	// ListByOwner returns all of the owner's tags ordered by name.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Tag, error)

	// ListByBookmark returns all tags linked to a bookmark, ordered by name.
	ListByBookmark(ctx context.Context, bookmarkID uuid.UUID) ([]domain.Tag, error)

	// Delete removes the tag scoped by (id, ownerID) and returns the affected
	// row count. Zero rows is not an error.
	Delete(ctx context.Context, ownerID string, id uuid.UUID) (int64, error)

	// DeleteOrphans removes every tag of the owner that is associated with
	// zero bookmarks, returning how many were removed.
	DeleteOrphans(ctx context.Context, ownerID string) (int64, error)
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

// Upsert inserts a tag or returns the existing row on (owner_id, name)
// conflict. The DO UPDATE SET trick forces the RETURNING clause to fire even
// when the conflict handler skips the insert — without it, RETURNING returns
// nothing on DO NOTHING conflicts.
func (r *pgTagRepo) Upsert(ctx context.Context, ownerID, name string) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (owner_id, name)
		VALUES (@owner_id, @name)
		ON CONFLICT (owner_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, owner_id, name, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"owner_id": ownerID, "name": name})
	result, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.Upsert: %w", err)
	}
	return result, nil
}

// ListByOwner returns the owner's full tag vocabulary ordered by name.
func (r *pgTagRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Tag, error) {
	const q = `
		SELECT id, owner_id, name, created_at
		FROM tags
		WHERE owner_id = @owner_id
		ORDER BY name`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ListByOwner: %w", err)
	}
	defer rows.Close()

	return collectTags(rows, "repo.TagRepo.ListByOwner")
}

// ListByBookmark returns all tags linked to a bookmark, ordered by name.
func (r *pgTagRepo) ListByBookmark(ctx context.Context, bookmarkID uuid.UUID) ([]domain.Tag, error) {
	const q = `
		SELECT t.id, t.owner_id, t.name, t.created_at
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE bt.bookmark_id = @bookmark_id
		ORDER BY t.name`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"bookmark_id": bookmarkID})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ListByBookmark: %w", err)
	}
	defer rows.Close()

	return collectTags(rows, "repo.TagRepo.ListByBookmark")
}

// Delete removes a tag scoped by (id, owner_id). Junction rows go with it via
// ON DELETE CASCADE.
func (r *pgTagRepo) Delete(ctx context.Context, ownerID string, id uuid.UUID) (int64, error) {
	const q = `DELETE FROM tags WHERE id = @id AND owner_id = @owner_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("repo.TagRepo.Delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOrphans removes every tag of the owner with zero bookmark links.
// Run after association changes commit, so a tag detached by an update or
// delete does not linger in the owner's vocabulary.
func (r *pgTagRepo) DeleteOrphans(ctx context.Context, ownerID string) (int64, error) {
	const q = `
		DELETE FROM tags
		WHERE owner_id = @owner_id
		  AND NOT EXISTS (
			SELECT 1 FROM bookmark_tags bt WHERE bt.tag_id = tags.id)`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("repo.TagRepo.DeleteOrphans: %w", err)
	}
	return tag.RowsAffected(), nil
}

// collectTags drains rows into a slice, wrapping errors with op.
func collectTags(rows pgx.Rows, op string) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return tags, nil
}

// scanTag maps a single database row into a domain.Tag.
func scanTag(s scanner) (domain.Tag, error) {
	var (
		t  domain.Tag
		id pgtype.UUID
	)
	err := s.Scan(&id, &t.OwnerID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tag{}, domain.ErrNotFound
		}
		return domain.Tag{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	return t, nil
}
