package folders

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

// PostgresRepository implements folder storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (id, name, parent_id, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		folder.ID, folder.Name, folder.ParentID, folder.OwnerID, folder.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	query := `SELECT id, name, parent_id, owner_id, created_at FROM folders WHERE id=$1`

	var item models.Folder
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.Name, &item.ParentID, &item.OwnerID, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("select folder: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
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

func (r *PostgresRepository) ListRoots(ctx context.Context, userID uuid.UUID) ([]*models.Folder, error) {
	query := `
		SELECT DISTINCT f.id, f.name, f.parent_id, f.owner_id, f.created_at
		FROM folders f
		LEFT JOIN folder_grants g ON g.folder_id = f.id AND g.user_id = $1 AND g.can_view
		WHERE f.parent_id IS NULL AND (f.owner_id = $1 OR g.user_id IS NOT NULL)
		ORDER BY f.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select root folders: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		var item models.Folder
		if err := rows.Scan(&item.ID, &item.Name, &item.ParentID, &item.OwnerID, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SubtreeFileKeys(ctx context.Context, id uuid.UUID) ([]string, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM folders WHERE id = $1
			UNION ALL
			SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
		)
		SELECT fi.storage_key FROM files fi JOIN subtree s ON fi.folder_id = s.id
	`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("select subtree file keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
