package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config configures S3Store. Endpoint and ForcePathStyle are only needed
// for S3-compatible services; empty credentials fall back to the default chain.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	Timeout         time.Duration
}

// S3Store is an ObjectStore backed by an S3 bucket.
type S3Store struct {
	client  *s3.S3
	bucket  string
	timeout time.Duration
	logger  *slog.Logger
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store builds the S3 client once for the lifetime of the process.
func NewS3Store(cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	const op = "storage.NewS3Store"

	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &S3Store{
		client:  s3.New(sess),
		bucket:  cfg.Bucket,
		timeout: cfg.Timeout,
		logger:  logger.With(slog.String("component", "storage.s3")),
	}, nil
}

func (s *S3Store) Save(ctx context.Context, name string, content []byte) (string, error) {
	const op = "storage.S3Store.Save"

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(ContentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	const op = "storage.S3Store.Exists"

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err == nil {
		return true, nil
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", op, err)
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	const op = "storage.S3Store.Delete"

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *S3Store) URL(ctx context.Context, name string, ttl time.Duration) *string {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	u, err := req.Presign(ttl)
	if err != nil {
		s.logger.WarnContext(ctx, "presign failed", slog.String("key", name), slog.Any("error", err))
		return nil
	}
	return &u
}

func (s *S3Store) AvailableName(ctx context.Context, name string) (string, error) {
	return AvailableName(ctx, s, name)
}
