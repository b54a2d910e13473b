package storage

import (
	"context"
	"fmt"

	"rentline/config"
)

// Backend names accepted in STORAGE_BACKEND.
const (
	BackendCloudinary = "cloudinary"
	BackendGCS        = "gcs"
	BackendMinio      = "minio"
	BackendMemory     = "memory"
)

// NewFromConfig builds the configured storage backend.
func NewFromConfig(ctx context.Context, cfg config.Config) (StorageService, error) {
	switch cfg.StorageBackend {
	case BackendCloudinary, "":
		return NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.DocumentEncryptionKey)
	case BackendGCS:
		return NewGCSStorage(ctx, cfg.GCSCredentialsFile, cfg.GCSBucket, cfg.DocumentEncryptionKey)
	case BackendMinio:
		s, err := NewMinioStorage(MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, cfg.DocumentEncryptionKey)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStorage(cfg.DocumentEncryptionKey), nil
	default:
		return nil, fmt.Errorf("storage.NewFromConfig: unsupported storage backend: %s", cfg.StorageBackend)
	}
}
