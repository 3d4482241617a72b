package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures MinioStore. Endpoint may carry an http(s) scheme,
// which decides whether TLS is used.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Timeout   time.Duration
}

// MinioStore is an ObjectStore backed by MinIO or any S3-compatible server.
type MinioStore struct {
	client  *mclient.Client
	bucket  string
	timeout time.Duration
	logger  *slog.Logger
}

var _ ObjectStore = (*MinioStore)(nil)

// NewMinioStore connects and fails fast when the bucket is missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig, logger *slog.Logger) (*MinioStore, error) {
	const op = "storage.NewMinioStore"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		timeout: cfg.Timeout,
		logger:  logger.With(slog.String("component", "storage.minio")),
	}, nil
}

func (s *MinioStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	const op = "storage.MinioStore.Save"

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(content), int64(len(content)),
		mclient.PutObjectOptions{ContentType: ContentType(name)})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}

func (s *MinioStore) Exists(ctx context.Context, name string) (bool, error) {
	const op = "storage.MinioStore.Exists"

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.StatObject(ctx, s.bucket, name, mclient.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	errResp := mclient.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", op, err)
}

func (s *MinioStore) Delete(ctx context.Context, name string) error {
	const op = "storage.MinioStore.Delete"

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.RemoveObject(ctx, s.bucket, name, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *MinioStore) URL(ctx context.Context, name string, ttl time.Duration) *string {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, ttl, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "presign failed", slog.String("key", name), slog.Any("error", err))
		return nil
	}
	link := u.String()
	return &link
}

func (s *MinioStore) AvailableName(ctx context.Context, name string) (string, error) {
	return AvailableName(ctx, s, name)
}
