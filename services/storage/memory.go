package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// memoryScheme prefixes URLs handed out by MemoryStorage.
const memoryScheme = "memory://"

// MemoryStorage keeps objects in process. It backs local development and
// tests.
type MemoryStorage struct {
	mu            sync.RWMutex
	objects       map[string]Object
	encryptionKey string
}

// NewMemoryStorage returns an empty in-process store.
func NewMemoryStorage(encryptionKey string) *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]Object), encryptionKey: encryptionKey}
}

func (s *MemoryStorage) Upload(_ context.Context, obj Object) (string, error) {
	if err := validate(obj); err != nil {
		return "", err
	}
	obj.Data = append([]byte(nil), obj.Data...)
	key := obj.Key()

	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()
	return memoryScheme + key, nil
}

func (s *MemoryStorage) UploadPrivate(ctx context.Context, obj Object) (string, error) {
	enc, err := sealed(obj, s.encryptionKey)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, enc)
}

func (s *MemoryStorage) Fetch(_ context.Context, url string) ([]byte, error) {
	obj, err := s.lookup(url)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), obj.Data...), nil
}

func (s *MemoryStorage) Delete(_ context.Context, url string) error {
	key, err := memoryKey(url)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Stat returns the stored object behind url.
func (s *MemoryStorage) Stat(url string) (Object, bool) {
	obj, err := s.lookup(url)
	return obj, err == nil
}

// Len reports how many objects are stored.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStorage) lookup(url string) (Object, error) {
	key, err := memoryKey(url)
	if err != nil {
		return Object{}, err
	}
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return Object{}, fmt.Errorf("MemoryStorage: no object at %s", url)
	}
	return obj, nil
}

func memoryKey(url string) (string, error) {
	if !strings.HasPrefix(url, memoryScheme) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return strings.TrimPrefix(url, memoryScheme), nil
}
