package files

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"mediavault/internal/common"
	"mediavault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	folderID := uuid.New()
	f := &models.File{
		ID:         uuid.New(),
		Name:       "video.mp4",
		FolderID:   &folderID,
		OwnerID:    uuid.New(),
		Size:       1000,
		StorageKey: "media/2026/video.mp4",
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\b`).
		WithArgs(f.ID, f.Name, f.FolderID, f.OwnerID, f.Size, f.StorageKey, f.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM\s+files\s+WHERE\s+id=\$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
