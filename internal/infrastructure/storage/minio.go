package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/johnquangdev/playcoach/pkg/config"
)

// maxAudioBytes bounds how much of one recording is read into memory
const maxAudioBytes = 200 << 20

// MinIOAudioSource reads uploaded session audio from a MinIO/S3 bucket
type MinIOAudioSource struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
}

// NewMinIOAudioSource creates a new MinIO audio source
func NewMinIOAudioSource(cfg *config.StorageConfig) (*MinIOAudioSource, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	source := &MinIOAudioSource{
		client:        minioClient,
		bucket:        cfg.BucketName,
		presignExpiry: expiry,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.BucketName)
	}

	return source, nil
}

// Fetch downloads the audio object
func (m *MinIOAudioSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get audio object: %w", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio object: %w", err)
	}
	if info.Size > maxAudioBytes {
		return nil, fmt.Errorf("audio object %s is too large: %d bytes", key, info.Size)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio object: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio object %s is empty", key)
	}
	return data, nil
}

// PresignedURL returns a time-limited download link for the audio object
func (m *MinIOAudioSource) PresignedURL(ctx context.Context, key string) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}
