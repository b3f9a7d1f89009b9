// Package storage persists exported shipment manifests in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	infraconfig "github.com/shipping/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultRegion       = "us-east-1"
	manifestContentType = "application/json"
)

// ErrManifestNotFound is returned by GetManifest when no object exists under the key
var ErrManifestNotFound = errors.New("manifest not found")

// S3API is the subset of *s3.Client used by S3ManifestStore
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3ManifestStore writes shipment manifests as JSON objects.
// It works with AWS S3 and S3-compatible servers such as MinIO.
type S3ManifestStore struct {
	client S3API
	bucket string
	logger *zap.Logger
}

// Option configures an S3ManifestStore
type Option func(*S3ManifestStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3ManifestStore) {
		s.logger = logger
	}
}

// WithClient replaces the S3 client built from the configuration
func WithClient(client S3API) Option {
	return func(s *S3ManifestStore) {
		s.client = client
	}
}

// NewS3ManifestStore creates a store from configuration. Static credentials
// are used when both keys are set, otherwise the default AWS chain applies.
func NewS3ManifestStore(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...Option) (*S3ManifestStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	store := &S3ManifestStore{bucket: cfg.Bucket, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	if store.client != nil {
		return store, nil
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return store, nil
}

// normalizeEndpoint adds a scheme to bare host:port endpoints
func normalizeEndpoint(endpoint string) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "http://" + endpoint
}

// EnsureBucket creates the bucket if it does not exist yet
func (s *S3ManifestStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating manifest bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PutManifest stores body under key, replacing any previous manifest
func (s *S3ManifestStore) PutManifest(ctx context.Context, key string, body []byte) error {
	if key == "" {
		return errors.New("manifest key is required")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(manifestContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload manifest %s: %w", key, err)
	}

	s.logger.Debug("Manifest uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(body)),
	)
	return nil
}

// GetManifest reads the manifest stored under key
func (s *S3ManifestStore) GetManifest(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to download manifest %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", key, err)
	}
	return body, nil
}

// Bucket returns the bucket name
func (s *S3ManifestStore) Bucket() string {
	return s.bucket
}
