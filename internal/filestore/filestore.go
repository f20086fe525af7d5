// Package filestore keeps the raw bytes of uploaded PDFs, keyed by
// document ID, independently of the search index.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when no file is stored under an ID.
var ErrNotFound = errors.New("stored file not found")

const (
	BackendDisk  = "disk"
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// disk
	Dir string

	// minio and gcs
	Bucket         string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

// Info describes a stored file.
type Info struct {
	Size    int64 // -1 when unknown
	ModTime time.Time
}

// Store persists uploaded PDFs.
type Store interface {
	// Save stores the content of r under id. size may be -1.
	Save(ctx context.Context, id string, r io.Reader, size int64) error
	// Open streams a stored file. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, Info, error)
	// Fetch makes the file available at a local path until release is called.
	Fetch(ctx context.Context, id string) (path string, release func(), err error)
	// List returns the IDs of all stored files.
	List(ctx context.Context) ([]string, error)
}

// New builds the backend named in cfg.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendDisk, "":
		return NewDiskStore(cfg.Dir)
	case BackendMinio:
		return NewMinioStore(ctx, cfg)
	case BackendGCS:
		return NewGCSStore(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown file store backend %q", cfg.Backend)
	}
}

const extension = ".pdf"

// ObjectName is the file or object name a document is stored under.
func ObjectName(id string) string {
	return id + extension
}

// idFromName reverses ObjectName; ok is false for foreign files.
func idFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, extension) {
		return "", false
	}
	id := strings.TrimSuffix(name, extension)
	return id, validID(id)
}

// validID rejects IDs that would escape the storage root.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
