// Package domain contains the core data types for the Marginalia bookmark
// manager. This package has zero external service dependencies and is imported
// by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark represents a single saved URL belonging to one owner.
// Description is manually authored by the user; Summary is machine-generated
// from the fetched page and is empty when generation failed or never ran.
type Bookmark struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"-"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// UntitledFallback is the title stored when neither the user nor the fetched
// page supplies one.
const UntitledFallback = "Untitled"

// BookmarkFilter narrows a bookmark listing. Zero values mean "no filter".
type BookmarkFilter struct {
	// TagName restricts results to bookmarks carrying this exact tag name.
	TagName string
	// Query is matched case-insensitively as a substring of title,
	// description, and url.
	Query string
}

// IsZero reports whether the filter applies no narrowing at all.
func (f BookmarkFilter) IsZero() bool {
	return f.TagName == "" && f.Query == ""
}

// BookmarkListing is one page of an owner's bookmarks plus the total match
// count. It is the unit stored in the listing cache.
type BookmarkListing struct {
	Bookmarks []Bookmark `json:"bookmarks"`
	Total     int64      `json:"total"`
}
