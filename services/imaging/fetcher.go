package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// MaxImageBytes caps a single fetched image.
const MaxImageBytes = 10 << 20

// Kind classifies an image reference.
type Kind int

const (
	KindInline Kind = iota
	KindAbsolute
	KindRelative
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindAbsolute:
		return "absolute"
	}
	return "relative"
}

// Classify reports how ref should be acquired.
func Classify(ref string) Kind {
	lower := strings.ToLower(strings.TrimSpace(ref))
	switch {
	case strings.HasPrefix(lower, "data:"):
		return KindInline
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return KindAbsolute
	}
	return KindRelative
}

// ImageFetcher acquires the raw bytes behind a reference together with the
// MIME type it was declared or served with.
type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

// InlineFetcher decodes data URIs.
type InlineFetcher struct{}

func (InlineFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	return DecodeDataURI(ref)
}

// DecodeDataURI splits a data URI into its payload and MIME type. Both
// base64 and percent-encoded payloads are accepted.
func DecodeDataURI(ref string) ([]byte, string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(strings.ToLower(ref), "data:") {
		return nil, "", fmt.Errorf("imaging: not a data uri")
	}
	meta, payload, ok := strings.Cut(ref[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("imaging: malformed data uri")
	}

	isBase64 := false
	mimeType := ""
	for i, part := range strings.Split(meta, ";") {
		part = strings.TrimSpace(part)
		if i == 0 {
			mimeType = strings.ToLower(part)
			continue
		}
		if strings.EqualFold(part, "base64") {
			isBase64 = true
		}
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	if err := checkImageMIME(mimeType); err != nil {
		return nil, mimeType, err
	}

	var data []byte
	if isBase64 {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, mimeType, fmt.Errorf("imaging: invalid base64 payload: %w", err)
			}
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, mimeType, fmt.Errorf("imaging: invalid data uri payload: %w", err)
		}
		data = []byte(unescaped)
	}
	if isPDF(data) {
		return nil, mimeType, ErrNotAnImage
	}
	return data, mimeType, nil
}

// AssetFetcher reads site-relative references from a local filesystem,
// usually the directory the web assets are served from.
type AssetFetcher struct {
	FS fs.FS
}

func (f AssetFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	if f.FS == nil {
		return nil, "", fmt.Errorf("imaging: no asset filesystem configured")
	}
	name := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(ref)), "/")
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" || !fs.ValidPath(name) {
		return nil, "", fmt.Errorf("imaging: invalid asset path %q", ref)
	}
	data, err := fs.ReadFile(f.FS, name)
	if err != nil {
		return nil, "", fmt.Errorf("imaging: failed to read asset %s: %w", name, err)
	}
	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	mimeType = baseMIME(mimeType)
	if isPDF(data) {
		return nil, mimeType, ErrNotAnImage
	}
	if err := checkImageMIME(mimeType); err != nil {
		return nil, mimeType, err
	}
	return data, mimeType, nil
}

// NetworkFetcher downloads absolute URLs.
type NetworkFetcher struct {
	Client *http.Client
}

// NewNetworkFetcher returns a fetcher with its own client. Per-request
// deadlines come from the caller's context.
func NewNetworkFetcher() NetworkFetcher {
	return NetworkFetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f NetworkFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("imaging: invalid url: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imaging: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("imaging: fetch returned status %d", resp.StatusCode)
	}

	mimeType := baseMIME(resp.Header.Get("Content-Type"))
	if mimeType == "application/pdf" {
		return nil, mimeType, ErrNotAnImage
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, mimeType, fmt.Errorf("imaging: failed to read body: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, mimeType, fmt.Errorf("imaging: image exceeds %d bytes", MaxImageBytes)
	}
	if isPDF(data) {
		return nil, mimeType, ErrNotAnImage
	}
	if mimeType == "" || mimeType == "application/octet-stream" || mimeType == "binary/octet-stream" {
		mimeType = baseMIME(http.DetectContentType(data))
	}
	if err := checkImageMIME(mimeType); err != nil {
		return nil, mimeType, err
	}
	return data, mimeType, nil
}

func baseMIME(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func checkImageMIME(mimeType string) error {
	if strings.HasPrefix(mimeType, "image/") {
		return nil
	}
	return fmt.Errorf("%w: content type %q", ErrNotAnImage, mimeType)
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-"))
}

var errNoFetcher = errors.New("imaging: no fetcher configured")
