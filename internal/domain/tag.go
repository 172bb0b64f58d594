package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a user-defined label scoped to one owner. Name is the reconciliation
// key: unique per (owner, name) at the store. Tags are created lazily the
// first time a name is referenced and removed when no bookmark uses them.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
