// Package uploads persists upload sessions and their chunk records.
package uploads

import (
	"context"
	"time"

	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// Repository is the storage contract for the chunk store. Chunk rows are
// append-only until assembly; resubmitting an offset replaces the
// previous record (last write wins).
type Repository interface {
	CreateSession(ctx context.Context, session *models.UploadSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.UploadSession, error)

	// GetSessionForUpdate reads the session row and locks it for the
	// duration of the surrounding transaction. Completion calls use it
	// so only one caller can move the session to COMPLETE.
	GetSessionForUpdate(ctx context.Context, id uuid.UUID) (*models.UploadSession, error)

	MarkComplete(ctx context.Context, id uuid.UUID) error
	DeleteSession(ctx context.Context, id uuid.UUID) error

	UpsertChunk(ctx context.Context, chunk *models.Chunk) error

	// ListChunks returns the session's chunks ordered by ascending offset.
	ListChunks(ctx context.Context, sessionID uuid.UUID) ([]*models.Chunk, error)

	DeleteChunks(ctx context.Context, sessionID uuid.UUID) error

	// ListStaleSessions returns sessions still IN_PROGRESS that were
	// created before the cutoff. Consumed by the retention sweeper.
	ListStaleSessions(ctx context.Context, cutoff time.Time) ([]*models.UploadSession, error)
}
