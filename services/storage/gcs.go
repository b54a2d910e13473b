package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage stores files in a Google Cloud Storage bucket.
type GCSStorage struct {
	client        *gcs.Client
	bucketName    string
	encryptionKey string
}

// NewGCSStorage creates a GCS-backed StorageService. An empty credentials
// file falls back to application default credentials.
func NewGCSStorage(ctx context.Context, credentialsFile, bucketName, encryptionKey string) (*GCSStorage, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("storage.NewGCSStorage: GCS_BUCKET is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewGCSStorage: failed to create storage client: %w", err)
	}
	return &GCSStorage{client: client, bucketName: bucketName, encryptionKey: encryptionKey}, nil
}

func (s *GCSStorage) objectURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, (&url.URL{Path: key}).EscapedPath())
}

func (s *GCSStorage) keyOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	prefix := "/" + s.bucketName + "/"
	if err != nil || u.Host != "storage.googleapis.com" || !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	return strings.TrimPrefix(u.Path, prefix), nil
}

// Upload writes obj and returns its object URL.
func (s *GCSStorage) Upload(ctx context.Context, obj Object) (string, error) {
	if err := validate(obj); err != nil {
		return "", err
	}
	key := obj.Key()
	w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = obj.ContentType

	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("GCSStorage: failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("GCSStorage: failed to close writer: %w", err)
	}
	return s.objectURL(key), nil
}

// UploadPrivate encrypts and uploads obj.
func (s *GCSStorage) UploadPrivate(ctx context.Context, obj Object) (string, error) {
	enc, err := sealed(obj, s.encryptionKey)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, enc)
}

// Fetch reads an object by its URL.
func (s *GCSStorage) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := s.keyOf(rawURL)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCSStorage: failed to open object: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, MaxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("GCSStorage: failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes an object by its URL.
func (s *GCSStorage) Delete(ctx context.Context, rawURL string) error {
	key, err := s.keyOf(rawURL)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("GCSStorage: failed to delete file: %w", err)
	}
	return nil
}
