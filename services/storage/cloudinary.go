package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStorage stores files on Cloudinary.
type CloudinaryStorage struct {
	cld           *cloudinary.Cloudinary
	cloudName     string
	encryptionKey string
	httpClient    *http.Client
}

// NewCloudinaryStorage creates a Cloudinary-backed StorageService.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, encryptionKey string) (*CloudinaryStorage, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("storage.NewCloudinaryStorage: cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("storage.NewCloudinaryStorage: failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStorage{
		cld:           cld,
		cloudName:     cloudName,
		encryptionKey: encryptionKey,
		httpClient:    defaultHTTPClient,
	}, nil
}

// resourceType picks Cloudinary's bucket for a content type. PDFs and
// images go to "image" so they can be delivered directly; everything else
// is "raw".
func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"), contentType == "application/pdf":
		return "image"
	default:
		return "raw"
	}
}

// publicID strips the extension for image resources; raw resources keep it.
func publicID(obj Object, resType string) string {
	name := obj.Name
	if resType != "raw" {
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	return name
}

// Upload uploads obj into its folder and returns the secure delivery URL.
func (s *CloudinaryStorage) Upload(ctx context.Context, obj Object) (string, error) {
	if err := validate(obj); err != nil {
		return "", err
	}
	resType := resourceType(obj.ContentType)
	overwrite := true
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(obj.Data), uploader.UploadParams{
		Folder:       obj.Folder,
		PublicID:     publicID(obj, resType),
		ResourceType: resType,
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("CloudinaryStorage: failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("CloudinaryStorage: upload rejected: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("CloudinaryStorage: no secure URL returned")
	}
	return result.SecureURL, nil
}

// UploadPrivate encrypts and uploads obj as a raw resource.
func (s *CloudinaryStorage) UploadPrivate(ctx context.Context, obj Object) (string, error) {
	enc, err := sealed(obj, s.encryptionKey)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, enc)
}

// Fetch downloads a delivery URL.
func (s *CloudinaryStorage) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if _, _, err := s.parse(rawURL); err != nil {
		return nil, err
	}
	return httpFetch(ctx, s.httpClient, rawURL)
}

// Delete destroys the asset behind a delivery URL.
func (s *CloudinaryStorage) Delete(ctx context.Context, rawURL string) error {
	resType, id, err := s.parse(rawURL)
	if err != nil {
		return err
	}
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id, ResourceType: resType}); err != nil {
		return fmt.Errorf("CloudinaryStorage: failed to delete file: %w", err)
	}
	return nil
}

// parse extracts resource type and public ID from
// https://res.cloudinary.com/<cloud>/<type>/upload/v123/<folder>/<id>.<ext>.
func (s *CloudinaryStorage) parse(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "res.cloudinary.com" {
		return "", "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != s.cloudName || parts[2] != "upload" {
		return "", "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	resType := parts[1]
	rest := parts[3:]
	if len(rest) > 1 && isVersion(rest[0]) {
		rest = rest[1:]
	}
	id := strings.Join(rest, "/")
	if resType != "raw" {
		id = strings.TrimSuffix(id, path.Ext(id))
	}
	return resType, id, nil
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
