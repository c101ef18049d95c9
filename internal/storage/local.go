package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// LocalStorage writes downloaded media into a single output directory.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a LocalStorage rooted at dir. The directory is
// created lazily on the first Save.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir returns the output directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save streams r into dir/filename and returns the final path and the number
// of bytes written. Data goes to a hidden temp file first and is renamed into
// place only after a complete copy, so a failed save leaves nothing behind.
func (s *LocalStorage) Save(ctx context.Context, filename string, r io.Reader) (string, int64, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", 0, fmt.Errorf("%w: invalid filename %q", domain.ErrStorage, filename)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("%w: create output directory %s: %v", domain.ErrStorage, s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filename+".*.part")
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp file: %v", domain.ErrStorage, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := &errWriter{w: tmp}
	n, err := io.Copy(w, &contextReader{ctx: ctx, r: r})
	if err != nil {
		if w.err != nil {
			return "", n, fmt.Errorf("%w: write %s: %v", domain.ErrStorage, filename, err)
		}
		// Anything else came from the media stream or the job deadline.
		return "", n, fmt.Errorf("%w: read media stream: %v", domain.ErrFetch, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", n, fmt.Errorf("%w: sync %s: %v", domain.ErrStorage, filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", n, fmt.Errorf("%w: close %s: %v", domain.ErrStorage, filename, err)
	}

	path := filepath.Join(s.dir, filename)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", n, fmt.Errorf("%w: rename into place: %v", domain.ErrStorage, err)
	}
	committed = true
	return path, n, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// errWriter remembers whether a copy failed on the disk side.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, err
}
