package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mediavault/internal/common"
	"mediavault/internal/dbx"
	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// PostgresRepository implements file storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, name, folder_id, owner_id, size, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.Name, file.FolderID, file.OwnerID, file.Size, file.StorageKey, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `SELECT id, name, folder_id, owner_id, size, storage_key, created_at FROM files WHERE id=$1`

	var item models.File
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.Name, &item.FolderID, &item.OwnerID, &item.Size, &item.StorageKey, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]*models.File, error) {
	query := `
		SELECT id, name, folder_id, owner_id, size, storage_key, created_at
		FROM files WHERE folder_id=$1 ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("select files by folder: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.Name, &item.FolderID, &item.OwnerID,
			&item.Size, &item.StorageKey, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
