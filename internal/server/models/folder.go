// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Folder is a node in the workspace tree. ParentID is nil for root
// folders; the parent relation forms a forest, checked at creation.
type Folder struct {
	ID        uuid.UUID
	Name      string
	ParentID  *uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
}

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}
