package services

import (
	"context"
	"database/sql"
	"errors"

	"mediavault/internal/common"
	"mediavault/internal/server/access"
	"mediavault/internal/server/models"
	"mediavault/internal/server/repositories/repomanager"

	"github.com/google/uuid"
)

// AccessService answers capability questions for callers outside the
// service layer, such as a media-serving frontend asking whether a
// request may stream a file.
type AccessService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

func NewAccessService(db *sql.DB, repos repomanager.RepositoryManager) *AccessService {
	return &AccessService{db: db, repos: repos}
}

// CanAccessFile reports whether the user may exercise the capability on
// the file. An unknown file is simply not accessible, not an error.
func (s *AccessService) CanAccessFile(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, cap models.Capability) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}

	file, err := s.repos.Files(s.db).Get(ctx, fileID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	resolver := access.NewRepositoryResolver(s.repos.Folders(s.db), s.repos.Grants(s.db))
	return resolver.ResolveFile(ctx, userID, file, cap)
}

// CanAccessFolder reports whether the user may exercise the capability
// on the folder.
func (s *AccessService) CanAccessFolder(ctx context.Context, userID uuid.UUID, folderID uuid.UUID, cap models.Capability) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}

	folder, err := s.repos.Folders(s.db).Get(ctx, folderID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	resolver := access.NewRepositoryResolver(s.repos.Folders(s.db), s.repos.Grants(s.db))
	return resolver.ResolveFolder(ctx, userID, folder, cap)
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
