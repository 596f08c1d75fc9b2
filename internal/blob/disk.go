package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mediavault/internal/common"

	"github.com/google/uuid"
)

// DiskStore keeps objects as regular files under a root directory.
// Writes go to a ".part" sibling first and are renamed into place, so a
// crash mid-write never exposes a truncated object.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return &DiskStore{root: abs}, nil
}

// pathFor maps a slash key to an absolute path under root, rejecting
// escapes.
func (s *DiskStore) pathFor(key string) (string, error) {
	key = strings.TrimSpace(key)
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(cleaned, "\x00") {
		return "", fmt.Errorf("invalid blob key %q: %w", key, common.ErrorValidation)
	}
	abs := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("blob key %q escapes root: %w", key, common.ErrorValidation)
	}
	return abs, nil
}

func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	final, err := s.pathFor(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o750); err != nil {
		return 0, fmt.Errorf("mkdir for %s: %w", key, err)
	}

	part := final + ".part-" + uuid.NewString()
	f, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", part, err)
	}

	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(part)
		return 0, fmt.Errorf("write %s: %w", key, err)
	}

	if err := os.Rename(part, final); err != nil {
		_ = os.Remove(part)
		return 0, fmt.Errorf("finalize %s: %w", key, err)
	}
	return n, nil
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	abs, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", key, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	abs, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
