package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus is the lifecycle state of an upload session.
type UploadStatus string

const (
	UploadInProgress UploadStatus = "IN_PROGRESS"
	UploadComplete   UploadStatus = "COMPLETE"
)

// UploadSession groups all chunks of one logical upload. It is created
// lazily on the first chunk, mutated only by its owner, and transitions
// to COMPLETE exactly once.
type UploadSession struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Status    UploadStatus
	CreatedAt time.Time
}

// Chunk is one independently submitted byte range of an upload session.
// The payload lives in the blob store under StorageKey; the row records
// the offset and length used at assembly time.
type Chunk struct {
	SessionID  uuid.UUID
	Offset     int64
	Size       int64
	StorageKey string
}
