package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"mediavault/internal/common"
	"mediavault/internal/dbx"
	"mediavault/internal/logging"
	"mediavault/internal/server/models"
	"mediavault/internal/server/repositories/files"
	"mediavault/internal/server/repositories/folders"
	"mediavault/internal/server/repositories/grants"
	"mediavault/internal/server/repositories/uploads"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

// newTxDB returns a sqlmock-backed *sql.DB that tolerates any number of
// transactions. The fakes below hold the real state, so the handle only
// has to satisfy BeginTx/Commit/Rollback.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 64; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeState is a mutex-guarded in-memory catalog shared by the fake
// repositories. One instance per test.
type fakeState struct {
	mu       sync.Mutex
	folders  map[uuid.UUID]*models.Folder
	files    map[uuid.UUID]*models.File
	grants   map[[2]uuid.UUID]*models.Grant
	sessions map[uuid.UUID]*models.UploadSession
	chunks   map[uuid.UUID]map[int64]*models.Chunk
}

func newFakeState() *fakeState {
	return &fakeState{
		folders:  make(map[uuid.UUID]*models.Folder),
		files:    make(map[uuid.UUID]*models.File),
		grants:   make(map[[2]uuid.UUID]*models.Grant),
		sessions: make(map[uuid.UUID]*models.UploadSession),
		chunks:   make(map[uuid.UUID]map[int64]*models.Chunk),
	}
}

type fakeFolderRepo struct{ s *fakeState }

func (r *fakeFolderRepo) Create(_ context.Context, f *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *f
	r.s.folders[f.ID] = &cp
	return nil
}

func (r *fakeFolderRepo) Get(_ context.Context, id uuid.UUID) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.folders[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFolderRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.deleteSubtreeLocked(id)
	return nil
}

func (r *fakeFolderRepo) deleteSubtreeLocked(id uuid.UUID) {
	for cid, f := range r.s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			r.deleteSubtreeLocked(cid)
		}
	}
	for fid, f := range r.s.files {
		if f.FolderID != nil && *f.FolderID == id {
			delete(r.s.files, fid)
		}
	}
	for k := range r.s.grants {
		if k[0] == id {
			delete(r.s.grants, k)
		}
	}
	delete(r.s.folders, id)
}

func (r *fakeFolderRepo) ListRoots(_ context.Context, userID uuid.UUID) ([]*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.s.folders {
		if f.ParentID != nil {
			continue
		}
		g := r.s.grants[[2]uuid.UUID{f.ID, userID}]
		if f.OwnerID == userID || (g != nil && g.CanView) {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) SubtreeFileKeys(_ context.Context, id uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	in := map[uuid.UUID]bool{id: true}
	for changed := true; changed; {
		changed = false
		for cid, f := range r.s.folders {
			if f.ParentID != nil && in[*f.ParentID] && !in[cid] {
				in[cid] = true
				changed = true
			}
		}
	}
	var keys []string
	for _, f := range r.s.files {
		if f.FolderID != nil && in[*f.FolderID] {
			keys = append(keys, f.StorageKey)
		}
	}
	return keys, nil
}

type fakeFileRepo struct{ s *fakeState }

func (r *fakeFileRepo) Create(_ context.Context, f *models.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *f
	r.s.files[f.ID] = &cp
	return nil
}

func (r *fakeFileRepo) Get(_ context.Context, id uuid.UUID) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.files, id)
	return nil
}

func (r *fakeFileRepo) ListByFolder(_ context.Context, folderID uuid.UUID) ([]*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.File
	for _, f := range r.s.files {
		if f.FolderID != nil && *f.FolderID == folderID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeGrantRepo struct{ s *fakeState }

func (r *fakeGrantRepo) Upsert(_ context.Context, g *models.Grant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *g
	r.s.grants[[2]uuid.UUID{g.FolderID, g.UserID}] = &cp
	return nil
}

func (r *fakeGrantRepo) Get(_ context.Context, folderID, userID uuid.UUID) (*models.Grant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grants[[2]uuid.UUID{folderID, userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGrantRepo) ListByFolder(_ context.Context, folderID uuid.UUID) ([]*models.Grant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Grant
	for k, g := range r.s.grants {
		if k[0] == folderID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeGrantRepo) Delete(_ context.Context, folderID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.grants, [2]uuid.UUID{folderID, userID})
	return nil
}

type fakeUploadRepo struct{ s *fakeState }

func (r *fakeUploadRepo) CreateSession(_ context.Context, sess *models.UploadSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[sess.ID]; ok {
		return nil
	}
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *fakeUploadRepo) GetSession(_ context.Context, id uuid.UUID) (*models.UploadSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *fakeUploadRepo) GetSessionForUpdate(ctx context.Context, id uuid.UUID) (*models.UploadSession, error) {
	return r.GetSession(ctx, id)
}

func (r *fakeUploadRepo) MarkComplete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != models.UploadInProgress {
		return common.ErrorConflict
	}
	sess.Status = models.UploadComplete
	return nil
}

func (r *fakeUploadRepo) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	delete(r.s.chunks, id)
	return nil
}

func (r *fakeUploadRepo) UpsertChunk(_ context.Context, c *models.Chunk) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.chunks[c.SessionID]
	if !ok {
		m = make(map[int64]*models.Chunk)
		r.s.chunks[c.SessionID] = m
	}
	cp := *c
	m[c.Offset] = &cp
	return nil
}

func (r *fakeUploadRepo) ListChunks(_ context.Context, sessionID uuid.UUID) ([]*models.Chunk, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Chunk
	for _, c := range r.s.chunks[sessionID] {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out, nil
}

func (r *fakeUploadRepo) DeleteChunks(_ context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.chunks, sessionID)
	return nil
}

func (r *fakeUploadRepo) ListStaleSessions(_ context.Context, cutoff time.Time) ([]*models.UploadSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.UploadSession
	for _, sess := range r.s.sessions {
		if sess.Status == models.UploadInProgress && sess.CreatedAt.Before(cutoff) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeRepoManager hands out fakes regardless of the DB handle. Migration
// support is not needed in these tests.
type fakeRepoManager struct{ s *fakeState }

func newFakeRepoManager() *fakeRepoManager { return &fakeRepoManager{s: newFakeState()} }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Folders(dbx.DBTX) folders.Repository          { return &fakeFolderRepo{s: m.s} }
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository              { return &fakeFileRepo{s: m.s} }
func (m *fakeRepoManager) Grants(dbx.DBTX) grants.Repository            { return &fakeGrantRepo{s: m.s} }
func (m *fakeRepoManager) Uploads(dbx.DBTX) uploads.Repository          { return &fakeUploadRepo{s: m.s} }

// memBlobStore is an in-memory blob.Store for tests that do not care
// about durability semantics.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore { return &memBlobStore{objects: make(map[string][]byte)} }

func (s *memBlobStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *memBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memBlobStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeQueue struct {
	mu      sync.Mutex
	fileIDs []uuid.UUID
	err     error
}

func (q *fakeQueue) EnqueuePostProcess(_ context.Context, fileID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.fileIDs = append(q.fileIDs, fileID)
	return nil
}

func (q *fakeQueue) enqueued() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uuid.UUID(nil), q.fileIDs...)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }
