// Package repo contains all database access logic for the Marginalia API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mwhite/marginalia/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BookmarkRepo defines the persistence operations for Bookmarks and their tag
// associations. Every read and write is scoped by owner: a row belonging to a
// different owner behaves exactly like a missing row.
//
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the pipeline to be unit-tested with a mock.
type BookmarkRepo interface {
	// Create inserts a new bookmark and returns the persisted record (with
	// DB-generated id and created_at populated). Tag associations are set
	// separately via SetTags.
	Create(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)

	// GetByID retrieves a bookmark by primary key, scoped to ownerID.
	// Returns domain.ErrNotFound if no such bookmark exists for that owner.
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (domain.Bookmark, error)

	// List returns one page of the owner's bookmarks matching filter, ordered
	// by created_at descending, plus the total matching count.
	List(ctx context.Context, ownerID string, filter domain.BookmarkFilter, p domain.PaginationParams) ([]domain.Bookmark, int64, error)

	// Update overwrites url, title, description, and summary of the bookmark
	// identified by (b.ID, b.OwnerID) and returns the affected row count.
	// Zero rows means the bookmark does not exist for that owner.
	Update(ctx context.Context, b domain.Bookmark) (int64, error)

	// UpdateSummary overwrites only the summary column, scoped by (id, ownerID),
	// and returns the affected row count.
	UpdateSummary(ctx context.Context, ownerID string, id uuid.UUID, summary string) (int64, error)

	// Delete removes the bookmark scoped by (id, ownerID) and returns the
	// affected row count. Zero rows is not an error.
	Delete(ctx context.Context, ownerID string, id uuid.UUID) (int64, error)

	// SetTags replaces the bookmark's tag association set with exactly tagIDs.
	SetTags(ctx context.Context, bookmarkID uuid.UUID, tagIDs []uuid.UUID) error
}

// pgBookmarkRepo is the Postgres implementation of BookmarkRepo.
type pgBookmarkRepo struct {
	db db
}

// NewBookmarkRepo constructs a BookmarkRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewBookmarkRepo(db db) BookmarkRepo {
	return &pgBookmarkRepo{db: db}
}

// Create inserts a new bookmark row and returns the full persisted record.
func (r *pgBookmarkRepo) Create(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	const q = `
		INSERT INTO bookmarks (owner_id, url, title, description, summary)
		VALUES (@owner_id, @url, @title, @description, @summary)
		RETURNING id, owner_id, url, title, description, summary, created_at`

	args := pgx.NamedArgs{
		"owner_id":    b.OwnerID,
		"url":         b.URL,
		"title":       b.Title,
		"description": textOrNil(b.Description),
		"summary":     textOrNil(b.Summary),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanBookmark(row)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("repo.BookmarkRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a bookmark by primary key, scoped to ownerID.
func (r *pgBookmarkRepo) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (domain.Bookmark, error) {
	const q = `
		SELECT id, owner_id, url, title, description, summary, created_at
		FROM bookmarks
		WHERE id = @id AND owner_id = @owner_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "owner_id": ownerID})
	result, err := scanBookmark(row)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("repo.BookmarkRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns one page of the owner's bookmarks plus the total match count.
// The tag filter matches the exact tag name through the junction table; the
// text filter is a case-insensitive substring match over title, description,
// and url. Empty filter values disable the corresponding clause.
func (r *pgBookmarkRepo) List(ctx context.Context, ownerID string, filter domain.BookmarkFilter, p domain.PaginationParams) ([]domain.Bookmark, int64, error) {
	const where = `
		owner_id = @owner_id
		AND (@tag_name = '' OR EXISTS (
			SELECT 1
			FROM bookmark_tags bt
			JOIN tags t ON t.id = bt.tag_id
			WHERE bt.bookmark_id = bookmarks.id AND t.name = @tag_name))
		AND (@query = ''
			OR title ILIKE '%' || @query || '%'
			OR description ILIKE '%' || @query || '%'
			OR url ILIKE '%' || @query || '%')`

	args := pgx.NamedArgs{
		"owner_id": ownerID,
		"tag_name": filter.TagName,
		"query":    filter.Query,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	}

	var total int64
	countQ := `SELECT count(*) FROM bookmarks WHERE` + where
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.BookmarkRepo.List: count: %w", err)
	}

	pageQ := `
		SELECT id, owner_id, url, title, description, summary, created_at
		FROM bookmarks
		WHERE` + where + `
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, pageQ, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BookmarkRepo.List: %w", err)
	}
	defer rows.Close()

	bookmarks := []domain.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.BookmarkRepo.List: scan: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.BookmarkRepo.List: rows: %w", err)
	}

	return bookmarks, total, nil
}

// Update overwrites the mutable fields scoped by (id, owner_id).
func (r *pgBookmarkRepo) Update(ctx context.Context, b domain.Bookmark) (int64, error) {
	const q = `
		UPDATE bookmarks
		SET url         = @url,
		    title       = @title,
		    description = @description,
		    summary     = @summary
		WHERE id = @id AND owner_id = @owner_id`

	args := pgx.NamedArgs{
		"id":          b.ID,
		"owner_id":    b.OwnerID,
		"url":         b.URL,
		"title":       b.Title,
		"description": textOrNil(b.Description),
		"summary":     textOrNil(b.Summary),
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("repo.BookmarkRepo.Update: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateSummary overwrites only the summary column, scoped by (id, owner_id).
func (r *pgBookmarkRepo) UpdateSummary(ctx context.Context, ownerID string, id uuid.UUID, summary string) (int64, error) {
	const q = `
		UPDATE bookmarks
		SET summary = @summary
		WHERE id = @id AND owner_id = @owner_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":       id,
		"owner_id": ownerID,
		"summary":  textOrNil(summary),
	})
	if err != nil {
		return 0, fmt.Errorf("repo.BookmarkRepo.UpdateSummary: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a bookmark scoped by (id, owner_id). The junction rows go
// with it via ON DELETE CASCADE.
func (r *pgBookmarkRepo) Delete(ctx context.Context, ownerID string, id uuid.UUID) (int64, error) {
	const q = `DELETE FROM bookmarks WHERE id = @id AND owner_id = @owner_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("repo.BookmarkRepo.Delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetTags replaces the bookmark's association set with exactly tagIDs:
// stale links are deleted, new ones inserted, existing ones kept.
func (r *pgBookmarkRepo) SetTags(ctx context.Context, bookmarkID uuid.UUID, tagIDs []uuid.UUID) error {
	// An empty set clears everything. Handled separately because an empty
	// slice encodes as a NULL array and `!= ALL(NULL)` matches nothing.
	if len(tagIDs) == 0 {
		const clear = `DELETE FROM bookmark_tags WHERE bookmark_id = @bookmark_id`
		if _, err := r.db.Exec(ctx, clear, pgx.NamedArgs{"bookmark_id": bookmarkID}); err != nil {
			return fmt.Errorf("repo.BookmarkRepo.SetTags: clear: %w", err)
		}
		return nil
	}

	const del = `
		DELETE FROM bookmark_tags
		WHERE bookmark_id = @bookmark_id
		  AND tag_id != ALL(@tag_ids::uuid[])`

	if _, err := r.db.Exec(ctx, del, pgx.NamedArgs{"bookmark_id": bookmarkID, "tag_ids": tagIDs}); err != nil {
		return fmt.Errorf("repo.BookmarkRepo.SetTags: delete: %w", err)
	}

	const ins = `
		INSERT INTO bookmark_tags (bookmark_id, tag_id)
		SELECT @bookmark_id, unnest(@tag_ids::uuid[])
		ON CONFLICT (bookmark_id, tag_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, ins, pgx.NamedArgs{"bookmark_id": bookmarkID, "tag_ids": tagIDs}); err != nil {
		return fmt.Errorf("repo.BookmarkRepo.SetTags: insert: %w", err)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to
// be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanBookmark maps a single database row into a domain.Bookmark.
// It handles the UUID and nullable description/summary conversions.
func scanBookmark(s scanner) (domain.Bookmark, error) {
	var (
		b           domain.Bookmark
		id          pgtype.UUID
		description pgtype.Text
		summary     pgtype.Text
	)

	err := s.Scan(&id, &b.OwnerID, &b.URL, &b.Title, &description, &summary, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bookmark{}, domain.ErrNotFound
		}
		return domain.Bookmark{}, err
	}

	b.ID = uuid.UUID(id.Bytes)
	b.Description = description.String
	b.Summary = summary.String
	return b, nil
}

// textOrNil maps an empty string to SQL NULL so optional columns stay NULL
// instead of accumulating empty strings.
func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
