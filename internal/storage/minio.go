package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nexabuild/go-services/internal/config"
)

// MinIOStorage is a thin wrapper around the minio client used to publish
// site archives.
type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

// NewMinIOStorage creates a MinIO storage client. It does not contact the
// server; call EnsureBucket before the first upload.
func NewMinIOStorage(cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MinIOStorage{client: mc, bucket: cfg.Bucket, presignTTL: ttl}, nil
}

// EnsureBucket creates the bucket unless it already exists.
func (s *MinIOStorage) EnsureBucket(ctx context.Context) error {
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := s.client.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return nil
}

// UploadFile uploads data from reader to the configured bucket using the provided key.
func (s *MinIOStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// DownloadFile returns a ReadCloser for the stored object.
func (s *MinIOStorage) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// perform a stat to ensure object exists
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// GetPresignedURL returns a presigned GET URL valid for the given duration.
func (s *MinIOStorage) GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", `attachment; filename="site.zip"`)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, reqParams)
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

// PublishArchive uploads a ZIP archive under key and returns a presigned
// download link.
func (s *MinIOStorage) PublishArchive(ctx context.Context, key string, archive []byte) (string, error) {
	if err := s.UploadFile(ctx, key, bytes.NewReader(archive), int64(len(archive)), "application/zip"); err != nil {
		return "", fmt.Errorf("minio upload %s: %w", key, err)
	}
	u, err := s.GetPresignedURL(ctx, key, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("minio presign %s: %w", key, err)
	}
	return u, nil
}
