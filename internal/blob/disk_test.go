package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediavault/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskStore(t *testing.T) (*DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestDiskStore_PutOpenRoundTrip(t *testing.T) {
	s, _ := newDiskStore(t)
	ctx := context.Background()

	n, err := s.Put(ctx, "uploads/s1/0", strings.NewReader("hello chunk"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	rc, err := s.Open(ctx, "uploads/s1/0")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello chunk", string(data))
}

func TestDiskStore_PutOverwrites(t *testing.T) {
	s, _ := newDiskStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "k", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", strings.NewReader("second"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(data))
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("stream broke")
	}
	n := f.after
	if n > len(p) {
		n = len(p)
	}
	f.after -= n
	return n, nil
}

func TestDiskStore_FailedPutLeavesNoObject(t *testing.T) {
	s, dir := newDiskStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "media/broken.mp4", &failingReader{after: 10})
	require.Error(t, err)

	_, err = s.Open(ctx, "media/broken.mp4")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// no stray .part file either
	entries, err := os.ReadDir(filepath.Join(dir, "media"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStore_OpenMissing(t *testing.T) {
	s, _ := newDiskStore(t)
	_, err := s.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDiskStore_DeleteIdempotent(t *testing.T) {
	s, _ := newDiskStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "gone", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "gone"))
	require.NoError(t, s.Delete(ctx, "gone"), "second delete must not fail")
}

func TestDiskStore_KeySanitation(t *testing.T) {
	s, dir := newDiskStore(t)
	ctx := context.Background()

	// empty and NUL keys are rejected outright
	for _, key := range []string{"", ".", "a\x00b"} {
		_, err := s.Put(ctx, key, strings.NewReader("x"))
		assert.Error(t, err, "key %q", key)
	}

	// traversal attempts are normalized back under the root
	_, err := s.Put(ctx, "../escape", strings.NewReader("x"))
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "escape"))
	assert.NoError(t, statErr, "normalized object must live under the root")
	_, statErr = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written outside the root")
}
