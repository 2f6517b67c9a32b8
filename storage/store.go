package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"latencyreport/config"
)

const (
	// ContentType of the published report.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DefaultLinkExpiry = 48 * time.Hour
)

// Publisher abstracts where the finished report goes.
type Publisher interface {
	// Publish uploads the file at localPath under its base name and
	// returns a download link. Upload failures are returned unchanged;
	// nothing is retried.
	Publish(ctx context.Context, localPath string) (string, error)
}

// New builds the publisher selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Backend {
	case "", "s3":
		return NewS3(ctx, S3Options{
			Bucket:     cfg.Bucket,
			Region:     cfg.Region,
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			LinkExpiry: cfg.LinkExpiry,
		}, log)
	case "minio":
		return NewMinio(MinioOptions{
			Endpoint:   cfg.Endpoint,
			Bucket:     cfg.Bucket,
			Region:     cfg.Region,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			UseSSL:     cfg.UseSSL,
			LinkExpiry: cfg.LinkExpiry,
		}, log)
	case "sftp":
		return NewSFTP(SFTPOptions{
			Addr:            cfg.SFTP.Addr,
			User:            cfg.SFTP.User,
			KeyPath:         cfg.SFTP.KeyPath,
			KnownHosts:      cfg.SFTP.KnownHosts,
			RemoteDir:       cfg.SFTP.RemoteDir,
			DownloadBaseURL: cfg.SFTP.DownloadBaseURL,
		}, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func expiryOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultLinkExpiry
	}
	return d
}

func loggerOrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
