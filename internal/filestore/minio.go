package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps files as <id>.pdf objects in a MinIO (or S3) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects and creates the bucket if it is missing.
func NewMinioStore(ctx context.Context, cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Save(ctx context.Context, id string, r io.Reader, size int64) error {
	if !validID(id) {
		return fmt.Errorf("invalid id %q", id)
	}
	_, err := s.client.PutObject(ctx, s.bucket, ObjectName(id), r, size, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", ObjectName(id), err)
	}
	return nil
}

func (s *MinioStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	if !validID(id) {
		return nil, Info{}, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, ObjectName(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, s.wrapErr(id, err)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, Info{}, s.wrapErr(id, err)
	}
	return obj, Info{Size: st.Size, ModTime: st.LastModified}, nil
}

func (s *MinioStore) Fetch(ctx context.Context, id string) (string, func(), error) {
	rc, _, err := s.Open(ctx, id)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()
	return spool(rc, id)
}

func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, obj.Err)
		}
		if id, ok := idFromName(obj.Key); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MinioStore) wrapErr(id string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("failed to read %s: %w", ObjectName(id), err)
}
