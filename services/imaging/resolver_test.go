package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.White, color.Black})
	img.SetColorIndex(0, 0, 1)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestResolver(t *testing.T) *Resolver {
	return NewResolver(nil, "", 2*time.Second, zaptest.NewLogger(t))
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"data:image/png;base64,AAAA": KindInline,
		"DATA:image/png;base64,AAAA": KindInline,
		"https://cdn.example/a.png":  KindAbsolute,
		"http://cdn.example/a.png":   KindAbsolute,
		"/img/logo.png":              KindRelative,
		"img/logo.png":               KindRelative,
	}
	for ref, want := range cases {
		assert.Equal(t, want, Classify(ref), ref)
	}
}

func TestResolveInline(t *testing.T) {
	r := newTestResolver(t)
	img, err := r.Resolve(context.Background(), EncodeDataURI("image/png", pngBytes(t, 120, 40)))
	require.NoError(t, err)
	assert.True(t, img.Probed)
	assert.NotNil(t, img.Raster)
	assert.Equal(t, 120, img.Width)
	assert.Equal(t, 40, img.Height)
	assert.Equal(t, "png", img.Format)
}

func TestResolveInlineUnprobeableFallsBack(t *testing.T) {
	r := newTestResolver(t)
	data := []byte("definitely not a png")
	img, err := r.Resolve(context.Background(), EncodeDataURI("image/png", data))
	require.NoError(t, err)
	assert.False(t, img.Probed)
	assert.Nil(t, img.Raster)
	assert.Equal(t, FallbackSize, img.Width)
	assert.Equal(t, FallbackSize, img.Height)
	assert.Equal(t, data, img.Data)
	assert.Equal(t, "png", img.Format)
}

func TestResolveInlinePDFRejected(t *testing.T) {
	r := newTestResolver(t)
	_, err := r.Resolve(context.Background(), EncodeDataURI("application/pdf", []byte("%PDF-1.4 ...")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAnImage)

	var resErr *ImageResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Contains(t, resErr.Ref, "data:application/pdf")
}

func TestResolveAbsoluteTwiceIsStable(t *testing.T) {
	body := pngBytes(t, 300, 90)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	r := newTestResolver(t)
	first, err := r.Resolve(context.Background(), srv.URL+"/sig.png")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), srv.URL+"/sig.png")
	require.NoError(t, err)

	assert.Equal(t, first.Width, second.Width)
	assert.Equal(t, first.Height, second.Height)
	assert.Equal(t, 300, first.Width)
	assert.Equal(t, int32(2), hits.Load(), "results must not be cached")
	assert.Equal(t, srv.URL+"/sig.png", first.Resolved)
}

func TestResolveAbsoluteRejectsPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	_, err := newTestResolver(t).Resolve(context.Background(), srv.URL+"/agreement")
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestResolveAbsoluteSniffsPDFWithoutContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("%PDF-1.7\n..."))
	}))
	defer srv.Close()

	_, err := newTestResolver(t).Resolve(context.Background(), srv.URL+"/doc")
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestResolveAbsoluteBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	_, err := newTestResolver(t).Resolve(context.Background(), srv.URL+"/missing.png")
	var resErr *ImageResolutionError
	assert.True(t, errors.As(err, &resErr))
}

func TestResolveTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := newTestResolver(t)
	r.Timeout = 50 * time.Millisecond
	start := time.Now()
	_, err := r.Resolve(context.Background(), srv.URL+"/slow.png")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveRelativeFromAssets(t *testing.T) {
	assets := fstest.MapFS{"img/logo.png": {Data: pngBytes(t, 64, 32)}}
	r := NewResolver(AssetFetcher{FS: assets}, "", time.Second, zaptest.NewLogger(t))

	img, err := r.Resolve(context.Background(), "/img/logo.png")
	require.NoError(t, err)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
}

func TestResolveRelativeFallsBackToOrigin(t *testing.T) {
	body := pngBytes(t, 10, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img/logo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	r := NewResolver(AssetFetcher{FS: fstest.MapFS{}}, srv.URL+"/", time.Second, zaptest.NewLogger(t))
	img, err := r.Resolve(context.Background(), "/img/logo.png")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Width)
	assert.Equal(t, 20, img.Height)
}

func TestResolveRelativeAllAttemptsFail(t *testing.T) {
	r := NewResolver(AssetFetcher{FS: fstest.MapFS{}}, "", time.Second, zaptest.NewLogger(t))
	_, err := r.Resolve(context.Background(), "/img/missing.png")

	var resErr *ImageResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "/img/missing.png", resErr.Ref)
	assert.Contains(t, err.Error(), "asset:")
	assert.Contains(t, err.Error(), "network:")
}

func TestResolveEmptyReference(t *testing.T) {
	_, err := newTestResolver(t).Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUnsupportedReference)
}

func TestNormalized(t *testing.T) {
	r := newTestResolver(t)
	img, err := r.Resolve(context.Background(), EncodeDataURI("image/png", pngBytes(t, 33, 17)))
	require.NoError(t, err)

	data, format, err := img.Normalized()
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 33, cfg.Width)
	assert.Equal(t, 17, cfg.Height)
}

func TestNormalizedWithoutRaster(t *testing.T) {
	img := &ResolvedImage{Format: "gif", Data: []byte("x")}
	_, _, err := img.Normalized()
	assert.Error(t, err)

	img = &ResolvedImage{Format: "jpeg", Data: []byte("x")}
	data, format, err := img.Normalized()
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, []byte("x"), data)
}

func TestDecodeDataURIPercentEncoded(t *testing.T) {
	data, mimeType, err := DecodeDataURI("data:image/svg+xml,%3Csvg%3E%3C%2Fsvg%3E")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", mimeType)
	assert.Equal(t, "<svg></svg>", string(data))
}
