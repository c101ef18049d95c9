package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/storage"
)

type failingReader struct {
	after int
	sent  int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent >= r.after {
		return 0, errors.New("connection reset by peer")
	}
	n := copy(p, strings.Repeat("x", r.after-r.sent))
	r.sent += n
	return n, nil
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLocalStorage_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	s := storage.NewLocalStorage(dir)

	path, n, err := s.Save(context.Background(), "job-1.mp4", strings.NewReader("video bytes"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "job-1.mp4"), path)
	assert.Equal(t, int64(len("video bytes")), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
	assert.Equal(t, []string{"job-1.mp4"}, listDir(t, dir))
}

func TestLocalStorage_StreamErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	s := storage.NewLocalStorage(dir)

	_, _, err := s.Save(context.Background(), "job-2.mp4", &failingReader{after: 64})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Empty(t, listDir(t, dir))
}

func TestLocalStorage_CancelledContextLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	s := storage.NewLocalStorage(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Save(ctx, "job-3.mp4", strings.NewReader("data"))
	require.Error(t, err)
	assert.Empty(t, listDir(t, dir))
}

func TestLocalStorage_UnwritableDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))

	s := storage.NewLocalStorage(blocker)
	_, _, err := s.Save(context.Background(), "job-4.mp4", strings.NewReader("data"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestLocalStorage_RejectsPathFilenames(t *testing.T) {
	s := storage.NewLocalStorage(t.TempDir())

	for _, name := range []string{"", "../escape.mp4", "sub/dir.mp4"} {
		_, _, err := s.Save(context.Background(), name, io.LimitReader(strings.NewReader("x"), 1))
		assert.ErrorIs(t, err, domain.ErrStorage, "filename %q", name)
	}
}
