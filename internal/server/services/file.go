package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"mediavault/internal/blob"
	"mediavault/internal/common"
	"mediavault/internal/dbx"
	"mediavault/internal/logging"
	"mediavault/internal/server/access"
	"mediavault/internal/server/models"
	"mediavault/internal/server/repositories/repomanager"

	"github.com/google/uuid"
)

// FileService exposes registered files. Files come into existence only
// through UploadService.Complete; this service reads and removes them.
type FileService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  blob.Store
	logger logging.Logger
}

func NewFileService(db *sql.DB, repos repomanager.RepositoryManager, blobs blob.Store, logger logging.Logger) *FileService {
	return &FileService{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		logger: logger.With("module", "file_service"),
	}
}

// GetFile returns the file row when the caller may view it.
func (s *FileService) GetFile(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.File, error) {
	file, err := s.repos.Files(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resolver := access.NewRepositoryResolver(s.repos.Folders(s.db), s.repos.Grants(s.db))
	ok, err := resolver.ResolveFile(ctx, userID, file, models.CapabilityView)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no view permission on file %s: %w", id, common.ErrorForbidden)
	}
	return file, nil
}

// OpenFile returns the file row and a reader over its content.
// The caller owns the reader.
func (s *FileService) OpenFile(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.File, io.ReadCloser, error) {
	file, err := s.GetFile(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open file %s: %v", common.ErrorStorage, id, err)
	}
	return file, rc, nil
}

// DeleteFile removes the row and then the stored object. Requires edit
// capability on the file's folder, or ownership for a folderless file.
func (s *FileService) DeleteFile(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return common.ErrorUnauthorized
	}

	var storageKey string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.repos.Files(tx).Get(ctx, id)
		if err != nil {
			return err
		}

		resolver := access.NewRepositoryResolver(s.repos.Folders(tx), s.repos.Grants(tx))
		ok, err := resolver.ResolveFile(ctx, userID, file, models.CapabilityEdit)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no edit permission on file %s: %w", id, common.ErrorForbidden)
		}

		storageKey = file.StorageKey
		return s.repos.Files(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if derr := s.blobs.Delete(ctx, storageKey); derr != nil {
		s.logger.Warn(ctx, "file blob not removed", "key", storageKey, "error", derr.Error())
	}

	s.logger.Info(ctx, "file deleted", "file_id", id)
	return nil
}
