package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhite/marginalia/internal/domain"
	"github.com/mwhite/marginalia/internal/repo"
	"github.com/mwhite/marginalia/testutil"
)

// newTestRepos opens a single transaction and returns BookmarkRepo and TagRepo
// both backed by the same tx, so tests can build full bookmark→tag graphs
// inside one rolled-back transaction.
func newTestRepos(t *testing.T) (repo.BookmarkRepo, repo.TagRepo) {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewBookmarkRepo(tx), repo.NewTagRepo(tx)
}

// mustCreate inserts a bookmark and fails the test on error.
func mustCreate(t *testing.T, bookmarks repo.BookmarkRepo, b domain.Bookmark) domain.Bookmark {
	t.Helper()
	created, err := bookmarks.Create(context.Background(), b)
	require.NoError(t, err)
	return created
}

// ---- Create / GetByID ------------------------------------------------------

func TestBookmarkRepo_Create_RoundTrip(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{
		OwnerID:     "owner-a",
		URL:         "https://example.com",
		Title:       "Example",
		Description: "a description",
		Summary:     "a summary",
	})

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := bookmarks.GetByID(ctx, "owner-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestBookmarkRepo_Create_OptionalFieldsEmpty(t *testing.T) {
	bookmarks, _ := newTestRepos(t)

	created := mustCreate(t, bookmarks, domain.Bookmark{
		OwnerID: "owner-a",
		URL:     "https://example.com",
		Title:   "Untitled",
	})

	assert.Equal(t, "", created.Description)
	assert.Equal(t, "", created.Summary)
}

func TestBookmarkRepo_GetByID_WrongOwner_NotFound(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{
		OwnerID: "owner-a", URL: "https://example.com", Title: "t",
	})

	_, err := bookmarks.GetByID(ctx, "owner-b", created.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound, "another owner's bookmark must look missing")
}

// ---- List ------------------------------------------------------------------

func TestBookmarkRepo_List_ScopedToOwner(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://a.example", Title: "a"})
	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://b.example", Title: "b"})
	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-b", URL: "https://c.example", Title: "c"})

	got, total, err := bookmarks.List(ctx, "owner-a", domain.BookmarkFilter{}, domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	for _, b := range got {
		assert.Equal(t, "owner-a", b.OwnerID)
	}
}

func TestBookmarkRepo_List_TextFilter(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://go.dev", Title: "The Go Programming Language"})
	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "Unrelated", Description: "golang tips inside"})
	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://other.example", Title: "Other"})

	got, total, err := bookmarks.List(ctx, "owner-a", domain.BookmarkFilter{Query: "go"}, domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "matches title, description, and url case-insensitively")
	assert.Len(t, got, 2)
}

func TestBookmarkRepo_List_TagFilter(t *testing.T) {
	bookmarks, tags := newTestRepos(t)
	ctx := context.Background()

	tagged := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://a.example", Title: "a"})
	mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://b.example", Title: "b"})

	tag, err := tags.Upsert(ctx, "owner-a", "reading")
	require.NoError(t, err)
	require.NoError(t, bookmarks.SetTags(ctx, tagged.ID, []uuid.UUID{tag.ID}))

	got, total, err := bookmarks.List(ctx, "owner-a", domain.BookmarkFilter{TagName: "reading"}, domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, tagged.ID, got[0].ID)
}

func TestBookmarkRepo_List_Pagination(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})
	}

	page, limit := 2, 2
	got, total, err := bookmarks.List(ctx, "owner-a", domain.BookmarkFilter{}, domain.NewPaginationParams(&page, &limit))

	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "total counts all matches, not the page")
	assert.Len(t, got, 1)
}

func TestBookmarkRepo_List_Empty(t *testing.T) {
	bookmarks, _ := newTestRepos(t)

	got, total, err := bookmarks.List(context.Background(), "owner-none", domain.BookmarkFilter{}, domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// ---- Update ----------------------------------------------------------------

func TestBookmarkRepo_Update_OverwritesFields(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{
		OwnerID: "owner-a", URL: "https://old.example", Title: "old", Summary: "old summary",
	})

	created.URL = "https://new.example"
	created.Title = "new"
	created.Description = "new description"
	created.Summary = "new summary"

	n, err := bookmarks.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := bookmarks.GetByID(ctx, "owner-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://new.example", got.URL)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "new description", got.Description)
	assert.Equal(t, "new summary", got.Summary)
}

func TestBookmarkRepo_Update_WrongOwner_ZeroRows(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})

	created.OwnerID = "owner-b"
	created.Title = "hijacked"

	n, err := bookmarks.Update(ctx, created)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := bookmarks.GetByID(ctx, "owner-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title, "the row must be untouched")
}

func TestBookmarkRepo_UpdateSummary_OnlySummary(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{
		OwnerID: "owner-a", URL: "https://example.com", Title: "keep me", Summary: "old",
	})

	n, err := bookmarks.UpdateSummary(ctx, "owner-a", created.ID, "new summary")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := bookmarks.GetByID(ctx, "owner-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new summary", got.Summary)
	assert.Equal(t, "keep me", got.Title)
}

func TestBookmarkRepo_UpdateSummary_WrongOwner_ZeroRows(t *testing.T) {
	bookmarks, _ := newTestRepos(t)

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})

	n, err := bookmarks.UpdateSummary(context.Background(), "owner-b", created.ID, "x")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ---- Delete ----------------------------------------------------------------

func TestBookmarkRepo_Delete(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})

	n, err := bookmarks.Delete(ctx, "owner-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = bookmarks.GetByID(ctx, "owner-a", created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookmarkRepo_Delete_WrongOwner_ZeroRows(t *testing.T) {
	bookmarks, _ := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})

	n, err := bookmarks.Delete(ctx, "owner-b", created.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = bookmarks.GetByID(ctx, "owner-a", created.ID)
	assert.NoError(t, err, "the owner still sees the bookmark")
}

func TestBookmarkRepo_Delete_CascadesAssociations(t *testing.T) {
	bookmarks, tags := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})
	tag, err := tags.Upsert(ctx, "owner-a", "reading")
	require.NoError(t, err)
	require.NoError(t, bookmarks.SetTags(ctx, created.ID, []uuid.UUID{tag.ID}))

	_, err = bookmarks.Delete(ctx, "owner-a", created.ID)
	require.NoError(t, err)

	// The tag row survives (orphan cleanup is the service's job), but the
	// association is gone: the tag no longer matches any bookmark.
	got, total, err := bookmarks.List(ctx, "owner-a", domain.BookmarkFilter{TagName: "reading"}, domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}

// ---- SetTags ---------------------------------------------------------------

func TestBookmarkRepo_SetTags_ReplacesSet(t *testing.T) {
	bookmarks, tags := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})

	golang, err := tags.Upsert(ctx, "owner-a", "golang")
	require.NoError(t, err)
	web, err := tags.Upsert(ctx, "owner-a", "web")
	require.NoError(t, err)
	db, err := tags.Upsert(ctx, "owner-a", "databases")
	require.NoError(t, err)

	require.NoError(t, bookmarks.SetTags(ctx, created.ID, []uuid.UUID{golang.ID, web.ID}))
	require.NoError(t, bookmarks.SetTags(ctx, created.ID, []uuid.UUID{web.ID, db.ID}))

	got, err := tags.ListByBookmark(ctx, created.ID)
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, tag := range got {
		names[i] = tag.Name
	}
	assert.ElementsMatch(t, []string{"web", "databases"}, names)
}

func TestBookmarkRepo_SetTags_EmptyClearsAll(t *testing.T) {
	bookmarks, tags := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})
	tag, err := tags.Upsert(ctx, "owner-a", "golang")
	require.NoError(t, err)
	require.NoError(t, bookmarks.SetTags(ctx, created.ID, []uuid.UUID{tag.ID}))

	require.NoError(t, bookmarks.SetTags(ctx, created.ID, nil))

	got, err := tags.ListByBookmark(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBookmarkRepo_SetTags_Idempotent(t *testing.T) {
	bookmarks, tags := newTestRepos(t)
	ctx := context.Background()

	created := mustCreate(t, bookmarks, domain.Bookmark{OwnerID: "owner-a", URL: "https://example.com", Title: "t"})
	tag, err := tags.Upsert(ctx, "owner-a", "golang")
	require.NoError(t, err)

	require.NoError(t, bookmarks.SetTags(ctx, created.ID, []uuid.UUID{tag.ID}))
	require.NoError(t, bookmarks.SetTags(ctx, created.ID, []uuid.UUID{tag.ID}))

	got, err := tags.ListByBookmark(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
