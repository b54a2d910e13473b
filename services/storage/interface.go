package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// StorageService uploads files and hands back durable URLs. URLs are opaque
// to callers.
type StorageService interface {
	// Upload stores obj as-is and returns its URL.
	Upload(ctx context.Context, obj Object) (string, error)
	// UploadPrivate encrypts obj with the service's document key first.
	UploadPrivate(ctx context.Context, obj Object) (string, error)
	// Fetch returns the raw bytes stored at url.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// Delete removes the object behind url.
	Delete(ctx context.Context, url string) error
}

// Object is a file to store.
type Object struct {
	Name        string
	Folder      string
	ContentType string
	Data        []byte
}

// Key is the object path inside the bucket.
func (o Object) Key() string {
	return strings.TrimPrefix(path.Join(o.Folder, o.Name), "/")
}

var (
	// ErrEmptyObject is returned for uploads without data.
	ErrEmptyObject = errors.New("storage: empty object")
	// ErrNoEncryptionKey is returned by UploadPrivate when no key is configured.
	ErrNoEncryptionKey = errors.New("storage: document encryption key not configured")
	// ErrForeignURL is returned when a URL does not belong to the backend.
	ErrForeignURL = errors.New("storage: url not served by this backend")
)

func validate(obj Object) error {
	if len(obj.Data) == 0 {
		return ErrEmptyObject
	}
	return nil
}

// sealed returns the encrypted copy of obj used by UploadPrivate.
func sealed(obj Object, key string) (Object, error) {
	if key == "" {
		return Object{}, ErrNoEncryptionKey
	}
	ciphertext, err := Encrypt(obj.Data, key)
	if err != nil {
		return Object{}, err
	}
	obj.Data = ciphertext
	obj.Name += ".enc"
	obj.ContentType = "application/octet-stream"
	return obj, nil
}
