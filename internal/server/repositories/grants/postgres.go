package grants

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

// PostgresRepository implements grant storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, grant *models.Grant) error {
	query := `
		INSERT INTO folder_grants (folder_id, user_id, can_view, can_edit, can_upload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (folder_id, user_id)
		DO UPDATE SET
			can_view = EXCLUDED.can_view,
			can_edit = EXCLUDED.can_edit,
			can_upload = EXCLUDED.can_upload
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.FolderID, grant.UserID, grant.CanView, grant.CanEdit, grant.CanUpload)
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, folderID, userID uuid.UUID) (*models.Grant, error) {
	query := `
		SELECT folder_id, user_id, can_view, can_edit, can_upload
		FROM folder_grants WHERE folder_id=$1 AND user_id=$2
	`
	var item models.Grant
	err := r.db.QueryRowContext(ctx, query, folderID, userID).
		Scan(&item.FolderID, &item.UserID, &item.CanView, &item.CanEdit, &item.CanUpload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("select grant: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]*models.Grant, error) {
	query := `
		SELECT folder_id, user_id, can_view, can_edit, can_upload
		FROM folder_grants WHERE folder_id=$1
	`
	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("select grants: %w", err)
	}
	defer rows.Close()

	var result []*models.Grant
	for rows.Next() {
		var item models.Grant
		if err := rows.Scan(&item.FolderID, &item.UserID, &item.CanView, &item.CanEdit, &item.CanUpload); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, folderID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM folder_grants WHERE folder_id=$1 AND user_id=$2`, folderID, userID)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
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
