package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mediavault/internal/blob"
	"mediavault/internal/common"
	"mediavault/internal/dbx"
	"mediavault/internal/logging"
	"mediavault/internal/server/access"
	"mediavault/internal/server/models"
	"mediavault/internal/server/repositories/repomanager"

	"github.com/google/uuid"
)

const maxFolderNameLen = 255

// FolderService manages the folder tree and its grants.
type FolderService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  blob.Store
	logger logging.Logger
}

func NewFolderService(db *sql.DB, repos repomanager.RepositoryManager, blobs blob.Store, logger logging.Logger) *FolderService {
	return &FolderService{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		logger: logger.With("module", "folder_service"),
	}
}

// sanitizeFolderName validates a user-supplied folder name. Names are
// plain labels, never paths.
func sanitizeFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("folder name is empty: %w", common.ErrorValidation)
	}
	if len(name) > maxFolderNameLen {
		return "", fmt.Errorf("folder name exceeds %d characters: %w", maxFolderNameLen, common.ErrorValidation)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("folder name %q contains path characters: %w", name, common.ErrorValidation)
	}
	return name, nil
}

// CreateFolder creates a folder owned by the caller. A child requires
// edit capability on the parent; a root folder needs no permission.
func (s *FolderService) CreateFolder(ctx context.Context, name string, parentID *uuid.UUID, userID uuid.UUID) (*models.Folder, error) {
	if userID == uuid.Nil {
		return nil, common.ErrorUnauthorized
	}
	name, err := sanitizeFolderName(name)
	if err != nil {
		return nil, err
	}

	var folder *models.Folder
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if parentID != nil {
			parent, err := s.repos.Folders(tx).Get(ctx, *parentID)
			if err != nil {
				return err
			}
			resolver := access.NewRepositoryResolver(s.repos.Folders(tx), s.repos.Grants(tx))
			ok, err := resolver.ResolveFolder(ctx, userID, parent, models.CapabilityEdit)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no edit permission on folder %s: %w", parent.ID, common.ErrorForbidden)
			}
		}

		folder = &models.Folder{
			ID:        uuid.New(),
			Name:      name,
			ParentID:  parentID,
			OwnerID:   userID,
			CreatedAt: time.Now().UTC(),
		}
		return s.repos.Folders(tx).Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "folder created", "folder_id", folder.ID, "owner_id", userID)
	return folder, nil
}

// GetFolder returns a folder the caller may view.
func (s *FolderService) GetFolder(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Folder, error) {
	folder, err := s.repos.Folders(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resolver := access.NewRepositoryResolver(s.repos.Folders(s.db), s.repos.Grants(s.db))
	ok, err := resolver.ResolveFolder(ctx, userID, folder, models.CapabilityView)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no view permission on folder %s: %w", id, common.ErrorForbidden)
	}
	return folder, nil
}

// ListRootFolders returns the root folders the caller owns together
// with roots shared with them through a view grant.
func (s *FolderService) ListRootFolders(ctx context.Context, userID uuid.UUID) ([]*models.Folder, error) {
	if userID == uuid.Nil {
		return nil, common.ErrorUnauthorized
	}
	return s.repos.Folders(s.db).ListRoots(ctx, userID)
}

// ListFiles returns the files directly inside a folder the caller may view.
func (s *FolderService) ListFiles(ctx context.Context, folderID uuid.UUID, userID uuid.UUID) ([]*models.File, error) {
	if _, err := s.GetFolder(ctx, folderID, userID); err != nil {
		return nil, err
	}
	return s.repos.Files(s.db).ListByFolder(ctx, folderID)
}

// Share creates or replaces the grant for a user on a folder. Only the
// folder owner may share; grants apply to the whole subtree.
func (s *FolderService) Share(ctx context.Context, folderID, granteeID uuid.UUID, canView, canEdit, canUpload bool, userID uuid.UUID) (*models.Grant, error) {
	if userID == uuid.Nil {
		return nil, common.ErrorUnauthorized
	}
	if granteeID == uuid.Nil {
		return nil, fmt.Errorf("grantee is required: %w", common.ErrorValidation)
	}

	folder, err := s.repos.Folders(s.db).Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != userID {
		return nil, fmt.Errorf("only the owner may share folder %s: %w", folderID, common.ErrorForbidden)
	}

	grant := &models.Grant{
		FolderID:  folderID,
		UserID:    granteeID,
		CanView:   canView,
		CanEdit:   canEdit,
		CanUpload: canUpload,
	}
	if err := s.repos.Grants(s.db).Upsert(ctx, grant); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "folder shared", "folder_id", folderID, "grantee_id", granteeID)
	return grant, nil
}

// Unshare removes a user's grant on a folder. Owner only.
func (s *FolderService) Unshare(ctx context.Context, folderID, granteeID uuid.UUID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return common.ErrorUnauthorized
	}

	folder, err := s.repos.Folders(s.db).Get(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.OwnerID != userID {
		return fmt.Errorf("only the owner may unshare folder %s: %w", folderID, common.ErrorForbidden)
	}
	return s.repos.Grants(s.db).Delete(ctx, folderID, granteeID)
}

// DeleteFolder removes a folder and everything beneath it. The row
// delete cascades in the database; the orphaned blobs are removed after
// the commit, best effort.
func (s *FolderService) DeleteFolder(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return common.ErrorUnauthorized
	}

	var orphanKeys []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fr := s.repos.Folders(tx)
		folder, err := fr.Get(ctx, id)
		if err != nil {
			return err
		}

		resolver := access.NewRepositoryResolver(fr, s.repos.Grants(tx))
		ok, err := resolver.ResolveFolder(ctx, userID, folder, models.CapabilityEdit)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no edit permission on folder %s: %w", id, common.ErrorForbidden)
		}

		orphanKeys, err = fr.SubtreeFileKeys(ctx, id)
		if err != nil {
			return err
		}
		return fr.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	for _, key := range orphanKeys {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn(ctx, "orphaned blob not removed", "key", key, "error", derr.Error())
		}
	}

	s.logger.Info(ctx, "folder deleted", "folder_id", id, "files_removed", len(orphanKeys))
	return nil
}
