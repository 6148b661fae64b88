// Package mirror replicates stored uploads to an S3-compatible bucket.
package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"upload-service/internal/config"
)

// Client is the subset of *minio.Client the mirror uses.
type Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Mirror copies files into a single bucket, keyed by filename.
type Mirror struct {
	client Client
	bucket string
}

// New builds a minio client from cfg and makes sure the bucket exists.
func New(ctx context.Context, cfg config.MirrorConfig) (*Mirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return NewWithClient(ctx, client, cfg.Bucket)
}

// NewWithClient wraps an existing client.
func NewWithClient(ctx context.Context, client Client, bucket string) (*Mirror, error) {
	m := &Mirror{client: client, bucket: bucket}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mirror) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	slog.Info("created mirror bucket", "bucket", m.bucket)
	return nil
}

// Bucket returns the target bucket name.
func (m *Mirror) Bucket() string { return m.bucket }

// Replicate uploads size bytes from r as object name.
func (m *Mirror) Replicate(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return fmt.Errorf("mirror put %s: %w", name, err)
	}
	slog.Debug("mirrored file", "bucket", m.bucket, "object", name, "size", size)
	return nil
}

// Purge removes every object in the bucket and returns how many were removed.
func (m *Mirror) Purge(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the listing goroutine on early return

	removed := 0
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("mirror list: %w", obj.Err)
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("mirror remove %s: %w", obj.Key, err)
		}
		removed++
	}
	return removed, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
