package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore keeps files as <id>.pdf objects in a Cloud Storage bucket.
// Credentials come from Application Default Credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Save(ctx context.Context, id string, r io.Reader, _ int64) error {
	if !validID(id) {
		return fmt.Errorf("invalid id %q", id)
	}

	w := s.client.Bucket(s.bucket).Object(ObjectName(id)).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func (s *GCSStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	if !validID(id) {
		return nil, Info{}, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}

	r, err := s.client.Bucket(s.bucket).Object(ObjectName(id)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", s.bucket, ObjectName(id), err)
	}
	return r, Info{Size: r.Attrs.Size, ModTime: r.Attrs.LastModified}, nil
}

func (s *GCSStore) Fetch(ctx context.Context, id string) (string, func(), error) {
	rc, _, err := s.Open(ctx, id)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()
	return spool(rc, id)
}

func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s: %w", s.bucket, err)
		}
		if id, ok := idFromName(attrs.Name); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
