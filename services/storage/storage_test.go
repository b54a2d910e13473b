package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentline/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	plaintext := []byte("driving licence scan")

	ciphertext, err := Encrypt(plaintext, "admin-key")
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Decrypt(ciphertext, "admin-key")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	_, err = Decrypt(ciphertext, "other-key")
	assert.Error(t, err)

	_, err = Decrypt([]byte{1, 2}, "admin-key")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	a, err := Encrypt([]byte("same"), "k")
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), "k")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealed(t *testing.T) {
	obj := Object{Name: "front.jpg", Folder: "checkout/b1", ContentType: "image/jpeg", Data: []byte("jpeg")}

	_, err := sealed(obj, "")
	assert.ErrorIs(t, err, ErrNoEncryptionKey)

	enc, err := sealed(obj, "k")
	require.NoError(t, err)
	assert.Equal(t, "front.jpg.enc", enc.Name)
	assert.Equal(t, "application/octet-stream", enc.ContentType)
	assert.Equal(t, "checkout/b1/front.jpg.enc", enc.Key())

	plain, err := Decrypt(enc.Data, "k")
	require.NoError(t, err)
	assert.Equal(t, obj.Data, plain)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a/b/c.pdf", Object{Folder: "/a/b", Name: "c.pdf"}.Key())
	assert.Equal(t, "c.pdf", Object{Name: "c.pdf"}.Key())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, validate(Object{Name: "x"}), ErrEmptyObject)
	assert.NoError(t, validate(Object{Name: "x", Data: []byte{1}}))
}

func TestCloudinaryParse(t *testing.T) {
	s := &CloudinaryStorage{cloudName: "demo"}

	tests := []struct {
		name    string
		url     string
		resType string
		id      string
		wantErr bool
	}{
		{"image with version", "https://res.cloudinary.com/demo/image/upload/v1712/agreements/a1/RA-1.pdf", "image", "agreements/a1/RA-1", false},
		{"raw keeps extension", "https://res.cloudinary.com/demo/raw/upload/v1/checkout/b1/x.jpg.enc", "raw", "checkout/b1/x.jpg.enc", false},
		{"no version", "https://res.cloudinary.com/demo/image/upload/sig/s1.png", "image", "sig/s1", false},
		{"folder starting with v", "https://res.cloudinary.com/demo/image/upload/vehicles/car.png", "image", "vehicles/car", false},
		{"other cloud", "https://res.cloudinary.com/other/image/upload/v1/x.png", "", "", true},
		{"other host", "https://example.com/demo/image/upload/v1/x.png", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resType, id, err := s.parse(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrForeignURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.resType, resType)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestResourceType(t *testing.T) {
	assert.Equal(t, "image", resourceType("image/png"))
	assert.Equal(t, "image", resourceType("application/pdf"))
	assert.Equal(t, "raw", resourceType("application/octet-stream"))
}

func TestMinioKeyOf(t *testing.T) {
	s := &MinioStorage{endpoint: "files.local:9000", bucket: "rentline"}
	key, err := s.keyOf(s.publicURL("agreements/a1/RA-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "agreements/a1/RA-1.pdf", key)

	_, err = s.keyOf("http://elsewhere/rentline/x")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestGCSKeyOf(t *testing.T) {
	s := &GCSStorage{bucketName: "docs"}
	key, err := s.keyOf(s.objectURL("signatures/a 1.png"))
	require.NoError(t, err)
	assert.Equal(t, "signatures/a 1.png", key)

	_, err = s.keyOf("https://storage.googleapis.com/other/x")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestHTTPFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	data, err := httpFetch(context.Background(), srv.Client(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, err = httpFetch(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("secret")

	url, err := s.Upload(ctx, Object{Name: "a.png", Folder: "signatures", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "memory://signatures/a.png", url)

	data, err := s.Fetch(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	private, err := s.UploadPrivate(ctx, Object{Name: "b.pdf", Folder: "docs", Data: []byte("%PDF")})
	require.NoError(t, err)
	obj, ok := s.Stat(private)
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
	plain, err := Decrypt(obj.Data, "secret")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), plain)

	require.NoError(t, s.Delete(ctx, url))
	_, err = s.Fetch(ctx, url)
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())

	_, err = s.Fetch(ctx, "https://elsewhere/x")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestNewFromConfigMemory(t *testing.T) {
	s, err := NewFromConfig(context.Background(), config.Config{StorageBackend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	_, err = NewFromConfig(context.Background(), config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}
