// Package grants persists per-user capability grants on folders.
package grants

import (
	"context"

	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// Repository is the storage contract for grants. A grant is unique per
// (folder, user); Upsert replaces the flags of an existing pair.
type Repository interface {
	Upsert(ctx context.Context, grant *models.Grant) error
	Get(ctx context.Context, folderID, userID uuid.UUID) (*models.Grant, error)
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]*models.Grant, error)
	Delete(ctx context.Context, folderID, userID uuid.UUID) error
}
