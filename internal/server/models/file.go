package models

import (
	"time"

	"github.com/google/uuid"
)

// File is a stored media object registered in the catalog.
// Size always equals the byte length of the object at StorageKey.
// FolderID is nil for unfiled files, which are visible to the owner only.
type File struct {
	ID        uuid.UUID
	Name      string
	FolderID  *uuid.UUID
	OwnerID   uuid.UUID
	Size      int64
	// StorageKey is the blob-store key (path) of the assembled object.
	StorageKey string
	CreatedAt  time.Time
}
