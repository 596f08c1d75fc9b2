// Package access implements capability resolution over the folder tree.
//
// A grant on a folder applies to the whole subtree beneath it. Resolution
// walks from the target folder toward the root and succeeds on the first
// grant whose flag for the requested capability is set. A grant with the
// flag unset does not stop the walk: permissions are additive across the
// chain, so any ancestor granting access is sufficient.
package access

import (
	"context"
	"errors"
	"fmt"

	"mediavault/internal/common"
	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// maxWalkDepth bounds the upward walk. The tree is a forest by
// construction, so hitting this means corrupted parent links.
const maxWalkDepth = 256

// FolderSource supplies folder rows for the walk.
type FolderSource interface {
	GetFolder(ctx context.Context, id uuid.UUID) (*models.Folder, error)
}

// GrantSource supplies explicit grants. GetGrant returns
// common.ErrorNotFound when no grant exists for the pair.
type GrantSource interface {
	GetGrant(ctx context.Context, folderID, userID uuid.UUID) (*models.Grant, error)
}

// Resolver answers "may this user exercise this capability on this
// target". It performs reads only; callers that need a consistent
// snapshot run it against transaction-bound sources.
type Resolver struct {
	folders FolderSource
	grants  GrantSource
}

func NewResolver(folders FolderSource, grants GrantSource) *Resolver {
	return &Resolver{folders: folders, grants: grants}
}

// ResolveFolder decides access to a folder. An anonymous caller
// (uuid.Nil) is denied without consulting storage. The folder owner is
// granted unconditionally; otherwise the grant chain is walked upward.
func (r *Resolver) ResolveFolder(ctx context.Context, userID uuid.UUID, folder *models.Folder, cap models.Capability) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if folder == nil {
		return false, nil
	}
	if folder.OwnerID == userID {
		return true, nil
	}

	current := folder
	for depth := 0; depth < maxWalkDepth; depth++ {
		grant, err := r.grants.GetGrant(ctx, current.ID, userID)
		switch {
		case err == nil:
			if grant.Allows(cap) {
				return true, nil
			}
			// flag unset: keep climbing, a further ancestor may allow
		case !errors.Is(err, common.ErrorNotFound):
			return false, fmt.Errorf("grant lookup for folder %s: %w", current.ID, err)
		}

		if current.ParentID == nil {
			return false, nil
		}

		parent, err := r.folders.GetFolder(ctx, *current.ParentID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// dangling parent link, treat as top of the chain
				return false, nil
			}
			return false, fmt.Errorf("folder lookup %s: %w", *current.ParentID, err)
		}
		current = parent
	}

	return false, fmt.Errorf("folder %s: parent chain exceeds %d levels: %w", folder.ID, maxWalkDepth, common.ErrorInternal)
}

// ResolveFile decides access to a file. A filed file delegates to its
// folder; an unfiled file is visible to its owner only. A file with no
// folder and a different owner is denied.
func (r *Resolver) ResolveFile(ctx context.Context, userID uuid.UUID, file *models.File, cap models.Capability) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if file == nil {
		return false, nil
	}
	if file.FolderID == nil {
		return file.OwnerID == userID, nil
	}

	folder, err := r.folders.GetFolder(ctx, *file.FolderID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return file.OwnerID == userID, nil
		}
		return false, fmt.Errorf("folder lookup %s: %w", *file.FolderID, err)
	}
	return r.ResolveFolder(ctx, userID, folder, cap)
}
