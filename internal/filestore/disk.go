package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DiskStore keeps files in a local directory as <id>.pdf.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) path(id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return filepath.Join(s.dir, ObjectName(id)), nil
}

// Save writes to a temporary file and renames it into place, so readers
// never see a partial upload.
func (s *DiskStore) Save(ctx context.Context, id string, r io.Reader, _ int64) error {
	dst, err := s.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move upload into place: %w", err)
	}
	return nil
}

func (s *DiskStore) Open(_ context.Context, id string) (io.ReadCloser, Info, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, Info{}, err
	}

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to open %s: %w", p, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Info{}, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return f, Info{Size: st.Size(), ModTime: st.ModTime()}, nil
}

// Fetch returns the stored path directly; release is a no-op.
func (s *DiskStore) Fetch(_ context.Context, id string) (string, func(), error) {
	p, err := s.path(id)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	} else if err != nil {
		return "", nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return p, func() {}, nil
}

func (s *DiskStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.dir, err)
	}

	ids := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := idFromName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
