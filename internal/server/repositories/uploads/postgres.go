package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediavault/internal/common"
	"mediavault/internal/dbx"
	"mediavault/internal/server/models"

	"github.com/google/uuid"
)

// PostgresRepository implements the chunk store over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *models.UploadSession) error {
	query := `
		INSERT INTO upload_sessions (id, owner_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.OwnerID, session.Status, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert upload session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.UploadSession, error) {
	return r.getSession(ctx, id, false)
}

func (r *PostgresRepository) GetSessionForUpdate(ctx context.Context, id uuid.UUID) (*models.UploadSession, error) {
	return r.getSession(ctx, id, true)
}

func (r *PostgresRepository) getSession(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.UploadSession, error) {
	query := `SELECT id, owner_id, status, created_at FROM upload_sessions WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var item models.UploadSession
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.OwnerID, &item.Status, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("select upload session: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) MarkComplete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE upload_sessions SET status=$1 WHERE id=$2 AND status=$3`
	res, err := r.db.ExecContext(ctx, query, models.UploadComplete, id, models.UploadInProgress)
	if err != nil {
		return fmt.Errorf("mark session complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrorConflict
	}
	return nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	// chunks go with it via ON DELETE CASCADE
	_, err := r.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete upload session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertChunk(ctx context.Context, chunk *models.Chunk) error {
	query := `
		INSERT INTO upload_chunks (session_id, byte_offset, size, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, byte_offset)
		DO UPDATE SET
			size = EXCLUDED.size,
			storage_key = EXCLUDED.storage_key,
			created_at = EXCLUDED.created_at
	`
	_, err := r.db.ExecContext(ctx, query,
		chunk.SessionID, chunk.Offset, chunk.Size, chunk.StorageKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListChunks(ctx context.Context, sessionID uuid.UUID) ([]*models.Chunk, error) {
	query := `
		SELECT session_id, byte_offset, size, storage_key
		FROM upload_chunks WHERE session_id=$1 ORDER BY byte_offset
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	var result []*models.Chunk
	for rows.Next() {
		var item models.Chunk
		if err := rows.Scan(&item.SessionID, &item.Offset, &item.Size, &item.StorageKey); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteChunks(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM upload_chunks WHERE session_id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListStaleSessions(ctx context.Context, cutoff time.Time) ([]*models.UploadSession, error) {
	query := `
		SELECT id, owner_id, status, created_at
		FROM upload_sessions WHERE status=$1 AND created_at < $2
	`
	rows, err := r.db.QueryContext(ctx, query, models.UploadInProgress, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select stale sessions: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadSession
	for rows.Next() {
		var item models.UploadSession
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
