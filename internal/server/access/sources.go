package access

import (
	"context"

	"mediavault/internal/server/models"
	"mediavault/internal/server/repositories/folders"
	"mediavault/internal/server/repositories/grants"

	"github.com/google/uuid"
)

type repoFolderSource struct{ r folders.Repository }

func (s repoFolderSource) GetFolder(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	return s.r.Get(ctx, id)
}

type repoGrantSource struct{ r grants.Repository }

func (s repoGrantSource) GetGrant(ctx context.Context, folderID, userID uuid.UUID) (*models.Grant, error) {
	return s.r.Get(ctx, folderID, userID)
}

// NewRepositoryResolver builds a Resolver over repository-backed
// sources. Pass repositories bound to the surrounding transaction when
// the decision must see uncommitted rows.
func NewRepositoryResolver(f folders.Repository, g grants.Repository) *Resolver {
	return NewResolver(repoFolderSource{f}, repoGrantSource{g})
}
