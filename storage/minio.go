package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioOptions configures a self-hosted S3-compatible publisher.
type MinioOptions struct {
	Endpoint   string // host:port, an http(s):// prefix overrides UseSSL
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	LinkExpiry time.Duration
}

type MinioStorage struct {
	client     *minio.Client
	bucketName string
	expiry     time.Duration
	log        *zap.Logger
}

func NewMinio(opts MinioOptions, log *zap.Logger) (*MinioStorage, error) {
	endpoint, secure := splitEndpoint(opts.Endpoint, opts.UseSSL)
	if endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint is required")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	// A fixed region avoids a bucket-location round trip before presigning.
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: init client: %w", err)
	}
	return &MinioStorage{
		client:     minioClient,
		bucketName: opts.Bucket,
		expiry:     expiryOrDefault(opts.LinkExpiry),
		log:        loggerOrNop(log),
	}, nil
}

func (s *MinioStorage) Publish(ctx context.Context, localPath string) (string, error) {
	key := filepath.Base(localPath)

	info, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to minio: %w", key, err)
	}
	s.log.Info("report uploaded to minio",
		zap.String("bucket", s.bucketName), zap.String("key", info.Key), zap.Int64("size", info.Size))

	return s.Link(ctx, key)
}

// Link presigns a GET for key valid for the configured expiry.
func (s *MinioStorage) Link(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// splitEndpoint strips a scheme, which minio.New rejects, and lets it
// decide TLS.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	}
	return endpoint, useSSL
}
