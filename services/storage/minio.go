package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage stores files on an S3-compatible MinIO server.
type MinioStorage struct {
	client        *minio.Client
	endpoint      string
	bucket        string
	useSSL        bool
	encryptionKey string
}

// MinioConfig holds MinIO connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioStorage creates a MinIO-backed StorageService.
func NewMinioStorage(cfg MinioConfig, encryptionKey string) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage.NewMinioStorage: failed to create minio client: %w", err)
	}
	return &MinioStorage{
		client:        client,
		endpoint:      cfg.Endpoint,
		bucket:        cfg.Bucket,
		useSSL:        cfg.UseSSL,
		encryptionKey: encryptionKey,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("MinioStorage: failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("MinioStorage: failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinioStorage) publicURL(key string) string {
	protocol := "http"
	if s.useSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.endpoint, s.bucket, key)
}

func (s *MinioStorage) keyOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	prefix := "/" + s.bucket + "/"
	if err != nil || u.Host != s.endpoint || !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	return strings.TrimPrefix(u.Path, prefix), nil
}

// Upload puts obj into the bucket and returns its public URL.
func (s *MinioStorage) Upload(ctx context.Context, obj Object) (string, error) {
	if err := validate(obj); err != nil {
		return "", err
	}
	key := obj.Key()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.Data), int64(len(obj.Data)), minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("MinioStorage: failed to upload file: %w", err)
	}
	return s.publicURL(key), nil
}

// UploadPrivate encrypts and uploads obj.
func (s *MinioStorage) UploadPrivate(ctx context.Context, obj Object) (string, error) {
	enc, err := sealed(obj, s.encryptionKey)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, enc)
}

// Fetch reads an object by its public URL.
func (s *MinioStorage) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := s.keyOf(rawURL)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("MinioStorage: failed to open object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(io.LimitReader(obj, MaxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("MinioStorage: failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes an object by its public URL.
func (s *MinioStorage) Delete(ctx context.Context, rawURL string) error {
	key, err := s.keyOf(rawURL)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("MinioStorage: failed to delete file: %w", err)
	}
	return nil
}
