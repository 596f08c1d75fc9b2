// Package files persists registered media files.
package files

import (
	"context"

	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// Repository is the storage contract for file rows.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	Get(ctx context.Context, id uuid.UUID) (*models.File, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]*models.File, error)
}
