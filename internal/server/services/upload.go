// Package services contains server-side business logic. This file
// implements UploadService: the chunk store entry point and the
// assembler that turns a completed session into one registered file.
package services

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"mediavault/internal/blob"
	"mediavault/internal/common"
	"mediavault/internal/dbx"
	"mediavault/internal/locks"
	"mediavault/internal/logging"
	"mediavault/internal/server/access"
	"mediavault/internal/server/config"
	"mediavault/internal/server/jobs"
	"mediavault/internal/server/models"
	"mediavault/internal/server/repositories/repomanager"

	"github.com/google/uuid"
)

// UploadService accepts chunks and assembles completed sessions.
//
// Chunk submission is fully parallel; completion is serialized per
// session by a keyed lock plus the session row lock, so two racing
// complete calls produce exactly one file and one ErrorConflict.
type UploadService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  blob.Store
	locks  locks.Keyed
	queue  jobs.Queue
	logger logging.Logger

	maxUploadBytes int64
	allowedExts    map[string]struct{}
	copyBufBytes   int
}

func NewUploadService(db *sql.DB, repos repomanager.RepositoryManager, blobs blob.Store,
	keyed locks.Keyed, queue jobs.Queue, logger logging.Logger, cfg *config.Config) *UploadService {

	exts := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	return &UploadService{
		db:             db,
		repos:          repos,
		blobs:          blobs,
		locks:          keyed,
		queue:          queue,
		logger:         logger.With("module", "upload_service"),
		maxUploadBytes: cfg.MaxUploadBytes,
		allowedExts:    exts,
		copyBufBytes:   cfg.AssemblyBufferBytes,
	}
}

func chunkStorageKey(sessionID uuid.UUID, offset int64) string {
	return fmt.Sprintf("uploads/%s/%d", sessionID, offset)
}

func mediaStorageKey(fileID uuid.UUID, filename string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("media/%d/%02d/%02d/%s%s",
		d.Year(), d.Month(), d.Day(), fileID, strings.ToLower(path.Ext(filename)))
}

// PutChunk stores one byte range of a session. The session is created
// lazily on the first chunk, owned by the caller; a chunk for an offset
// already present replaces the previous record (last write wins).
// No size or extension validation happens here: that is the assembler's
// job, checked once at completion.
func (s *UploadService) PutChunk(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID,
	offset int64, payload io.Reader) (*models.Chunk, error) {

	if userID == uuid.Nil {
		return nil, common.ErrorUnauthorized
	}
	if sessionID == uuid.Nil || offset < 0 {
		return nil, fmt.Errorf("bad session id or offset: %w", common.ErrorValidation)
	}

	repo := s.repos.Uploads(s.db)

	session, err := repo.GetSession(ctx, sessionID)
	if errors.Is(err, common.ErrorNotFound) {
		create := &models.UploadSession{
			ID:        sessionID,
			OwnerID:   userID,
			Status:    models.UploadInProgress,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.CreateSession(ctx, create); err != nil {
			return nil, err
		}
		// re-read: a concurrent first chunk may have won the insert
		session, err = repo.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if session.OwnerID != userID {
		return nil, common.ErrorUnauthorized
	}
	if session.Status != models.UploadInProgress {
		return nil, common.ErrorConflict
	}

	key := chunkStorageKey(sessionID, offset)
	n, err := s.blobs.Put(ctx, key, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: spool chunk: %v", common.ErrorStorage, err)
	}

	chunk := &models.Chunk{SessionID: sessionID, Offset: offset, Size: n, StorageKey: key}
	if err := repo.UpsertChunk(ctx, chunk); err != nil {
		_ = s.blobs.Delete(ctx, key)
		return nil, err
	}

	s.logger.Debug(ctx, "chunk stored", "session_id", sessionID, "offset", offset, "size", n)
	return chunk, nil
}

// Complete assembles the session into one file registered under the
// target folder. Preconditions run in order: session ownership,
// existence and single-completion, extension, size, chunk contiguity,
// upload permission on the folder. Only the size check forfeits the
// session; every other failure leaves it retryable.
func (s *UploadService) Complete(ctx context.Context, sessionID uuid.UUID, filename string,
	folderID *uuid.UUID, userID uuid.UUID) (*models.File, error) {

	if userID == uuid.Nil {
		return nil, common.ErrorUnauthorized
	}
	if sessionID == uuid.Nil || strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("session id and filename are required: %w", common.ErrorValidation)
	}

	release, err := s.locks.Acquire(ctx, "upload:"+sessionID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		outFile      *models.File
		assembledKey string
		forfeited    bool
		spoolKeys    []string
	)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		up := s.repos.Uploads(tx)

		session, err := up.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.OwnerID != userID {
			return common.ErrorUnauthorized
		}
		if session.Status != models.UploadInProgress {
			return common.ErrorConflict
		}

		chunks, err := up.ListChunks(ctx, sessionID)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			return fmt.Errorf("session has no chunks: %w", common.ErrorNotFound)
		}

		ext := strings.ToLower(path.Ext(filename))
		if _, ok := s.allowedExts[ext]; !ok {
			return fmt.Errorf("extension %q: %w", ext, common.ErrorUnsupportedType)
		}

		var total int64
		for _, c := range chunks {
			total += c.Size
		}
		if total > s.maxUploadBytes {
			// forfeiture: the rows go now (committed), the spooled blobs
			// right after the commit
			if err := up.DeleteSession(ctx, sessionID); err != nil {
				return err
			}
			forfeited = true
			spoolKeys = chunkKeys(chunks)
			return nil
		}

		if err := validateContiguous(chunks); err != nil {
			return err
		}

		if folderID != nil {
			folder, err := s.repos.Folders(tx).Get(ctx, *folderID)
			if err != nil {
				return err
			}
			resolver := access.NewRepositoryResolver(s.repos.Folders(tx), s.repos.Grants(tx))
			ok, err := resolver.ResolveFolder(ctx, userID, folder, models.CapabilityUpload)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no upload permission on folder %s: %w", folder.ID, common.ErrorForbidden)
			}
		}

		fileID := uuid.New()
		key := mediaStorageKey(fileID, filename)

		stream := newChunkStream(ctx, s.blobs, chunks)
		defer stream.Close()

		written, err := s.blobs.Put(ctx, key, bufio.NewReaderSize(stream, s.copyBufBytes))
		if err != nil {
			_ = s.blobs.Delete(ctx, key)
			return fmt.Errorf("%w: assemble session %s: %v", common.ErrorStorage, sessionID, err)
		}
		if written != total {
			_ = s.blobs.Delete(ctx, key)
			return fmt.Errorf("%w: assembled %d bytes, chunk records sum to %d", common.ErrorStorage, written, total)
		}

		file := &models.File{
			ID:         fileID,
			Name:       filename,
			FolderID:   folderID,
			OwnerID:    userID,
			Size:       total,
			StorageKey: key,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.repos.Files(tx).Create(ctx, file); err != nil {
			_ = s.blobs.Delete(ctx, key)
			return err
		}
		if err := up.MarkComplete(ctx, sessionID); err != nil {
			_ = s.blobs.Delete(ctx, key)
			return err
		}
		if err := up.DeleteChunks(ctx, sessionID); err != nil {
			_ = s.blobs.Delete(ctx, key)
			return err
		}

		outFile = file
		assembledKey = key
		spoolKeys = chunkKeys(chunks)
		return nil
	})
	if err != nil {
		// a failed commit must not leave the assembled object behind
		if assembledKey != "" {
			_ = s.blobs.Delete(ctx, assembledKey)
		}
		return nil, err
	}

	// best-effort spool cleanup, rows are already gone
	for _, key := range spoolKeys {
		_ = s.blobs.Delete(ctx, key)
	}

	if forfeited {
		s.logger.Warn(ctx, "session forfeited, size limit exceeded",
			"session_id", sessionID, "limit", s.maxUploadBytes)
		return nil, common.ErrorTooLarge
	}

	s.logger.Info(ctx, "upload assembled",
		"session_id", sessionID, "file_id", outFile.ID, "size", outFile.Size)

	// fire-and-forget: a dead broker must not unregister the file
	if err := s.queue.EnqueuePostProcess(ctx, outFile.ID); err != nil {
		s.logger.Error(ctx, "post-process enqueue failed", "file_id", outFile.ID, "error", err.Error())
	}

	return outFile, nil
}

func chunkKeys(chunks []*models.Chunk) []string {
	keys := make([]string, 0, len(chunks))
	for _, c := range chunks {
		keys = append(keys, c.StorageKey)
	}
	return keys
}

// validateContiguous requires chunks, already sorted by ascending
// offset, to tile [0, total) with no gaps or overlaps. Assembling a
// short file silently would be a correctness hazard, so holes are
// rejected rather than trusted.
func validateContiguous(chunks []*models.Chunk) error {
	var next int64
	for _, c := range chunks {
		if c.Offset != next {
			return fmt.Errorf("expected offset %d, found %d: %w", next, c.Offset, common.ErrorIncompleteUpload)
		}
		next = c.Offset + c.Size
	}
	return nil
}

// chunkStream is a lazy, non-restartable reader over the session's
// chunks in offset order. At most one chunk blob is open at a time, so
// assembly memory stays bounded regardless of file size.
type chunkStream struct {
	ctx    context.Context
	store  blob.Store
	chunks []*models.Chunk
	idx    int
	cur    io.ReadCloser
}

func newChunkStream(ctx context.Context, store blob.Store, chunks []*models.Chunk) *chunkStream {
	return &chunkStream{ctx: ctx, store: store, chunks: chunks}
}

func (cs *chunkStream) Read(p []byte) (int, error) {
	for {
		if cs.cur == nil {
			if cs.idx >= len(cs.chunks) {
				return 0, io.EOF
			}
			rc, err := cs.store.Open(cs.ctx, cs.chunks[cs.idx].StorageKey)
			if err != nil {
				return 0, fmt.Errorf("open chunk at offset %d: %w", cs.chunks[cs.idx].Offset, err)
			}
			cs.cur = rc
		}

		n, err := cs.cur.Read(p)
		if err == io.EOF {
			if cerr := cs.cur.Close(); cerr != nil {
				return n, cerr
			}
			cs.cur = nil
			cs.idx++
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (cs *chunkStream) Close() error {
	if cs.cur != nil {
		err := cs.cur.Close()
		cs.cur = nil
		return err
	}
	return nil
}
