// Package assets provides S3-compatible storage for generated audio assets
// and pre-signed URL generation. When S3 is not configured (empty bucket),
// the NoopUploader is used and all S3 operations are skipped, keeping the
// service in local-only mode.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/fableforge/internal/config"
)

// ErrNotConfigured is returned when asset storage is not configured.
var ErrNotConfigured = errors.New("asset storage not configured")

// Uploader stores generated assets and produces pre-signed download URLs.
type Uploader interface {
	// Upload stores an asset under the given object key.
	Upload(ctx context.Context, objectKey string, data io.Reader, size int64, contentType string) error

	// PresignedURL returns a pre-signed URL for downloading the asset.
	// Returns ErrNotConfigured when S3 is not configured.
	PresignedURL(ctx context.Context, objectKey string) (url string, expiry time.Time, err error)
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
// This interface enables testing with mock implementations.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectKey string, data io.Reader, size int64, contentType string) error
	PresignedGetObject(ctx context.Context, bucket, objectKey string, expiry time.Duration) (*url.URL, error)
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectKey string, data io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := w.client.PutObject(ctx, bucket, objectKey, data, size, opts)
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectKey string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectKey, expiry, nil)
}

// S3Uploader stores assets in S3-compatible storage.
type S3Uploader struct {
	client    s3Client
	bucket    string
	urlExpiry time.Duration
}

// Upload stores the asset under objectKey.
func (u *S3Uploader) Upload(ctx context.Context, objectKey string, data io.Reader, size int64, contentType string) error {
	if err := u.client.PutObject(ctx, u.bucket, objectKey, data, size, contentType); err != nil {
		return fmt.Errorf("upload asset to S3: %w", err)
	}
	return nil
}

// PresignedURL returns a pre-signed GET URL for the asset.
func (u *S3Uploader) PresignedURL(ctx context.Context, objectKey string) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, objectKey, u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	expiry := time.Now().Add(u.urlExpiry)
	return presigned.String(), expiry, nil
}

// NoopUploader is used when S3 storage is not configured.
// Upload is a no-op and PresignedURL returns ErrNotConfigured.
type NoopUploader struct{}

// Upload is a no-op when S3 is not configured.
func (u *NoopUploader) Upload(ctx context.Context, objectKey string, data io.Reader, size int64, contentType string) error {
	return nil
}

// PresignedURL returns ErrNotConfigured when S3 is not configured.
func (u *NoopUploader) PresignedURL(ctx context.Context, objectKey string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.AssetsConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		urlExpiry: time.Duration(cfg.URLExpiry),
	}, nil
}

// VoiceObjectKey returns the object key for a voice asset.
// Convention: {project_id}/voice/{asset_id}.mp3
func VoiceObjectKey(projectID, assetID string) string {
	return projectID + "/voice/" + assetID + ".mp3"
}
