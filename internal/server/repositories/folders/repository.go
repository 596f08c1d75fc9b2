// Package folders persists the folder tree of the catalog.
package folders

import (
	"context"

	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// Repository is the storage contract for folders. Deleting a folder
// cascades to its subfolders, files and grants.
type Repository interface {
	Create(ctx context.Context, folder *models.Folder) error
	Get(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListRoots returns root folders the user owns or may view through
	// an explicit grant.
	ListRoots(ctx context.Context, userID uuid.UUID) ([]*models.Folder, error)

	// SubtreeFileKeys returns the storage keys of every file under the
	// folder, itself included. Used to clean up blobs after a cascade
	// delete.
	SubtreeFileKeys(ctx context.Context, id uuid.UUID) ([]string, error)
}
