// Package imaging turns image references (data URIs, absolute URLs,
// site-relative paths) into decoded rasters ready for placement.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// FallbackSize is used for both dimensions when probing fails.
const FallbackSize = 200

var (
	// ErrNotAnImage is returned for references whose content is not an
	// image, such as a finished agreement PDF stored in a signature field.
	ErrNotAnImage = errors.New("imaging: reference is not an image")
	// ErrUnsupportedReference is returned for references no fetcher accepts.
	ErrUnsupportedReference = errors.New("imaging: unsupported image reference")
)

// ResolvedImage is a decoded image plus its pixel dimensions. Raster is nil
// when the bytes could not be decoded in-process; Width and Height then
// hold FallbackSize.
type ResolvedImage struct {
	Raster   image.Image
	Width    int
	Height   int
	Format   string // "png", "jpeg", "gif", "webp"
	Data     []byte // encoded bytes as received
	Probed   bool   // dimensions were measured rather than defaulted
	Resolved string // reference the image was finally read from
}

// DataURI renders the image as an inline data URI.
func (r *ResolvedImage) DataURI() string {
	return EncodeDataURI(mimeOf(r.Format), r.Data)
}

// Normalized returns the image as an 8-bit NRGBA PNG, the one format the
// PDF writer reads without restriction. Without a raster, PNG and JPEG
// bytes are returned untouched with their format.
func (r *ResolvedImage) Normalized() ([]byte, string, error) {
	if r.Raster == nil {
		switch r.Format {
		case "png", "jpeg":
			return r.Data, r.Format, nil
		}
		return nil, "", fmt.Errorf("imaging: cannot normalize undecoded %q image", r.Format)
	}
	b := r.Raster.Bounds()
	nrgba, ok := r.Raster.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), r.Raster, b.Min, draw.Src)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, "", fmt.Errorf("imaging: failed to encode png: %w", err)
	}
	return buf.Bytes(), "png", nil
}

// EncodeDataURI builds a base64 data URI.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func mimeOf(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg", "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

func formatOf(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}
	return ""
}

// decode probes and decodes data. A failed probe is not an error: the
// result carries FallbackSize dimensions and no raster.
func decode(data []byte, declaredFormat string) *ResolvedImage {
	img := &ResolvedImage{Data: data, Format: declaredFormat, Width: FallbackSize, Height: FallbackSize}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return img
	}
	img.Format = format
	img.Width, img.Height = cfg.Width, cfg.Height
	img.Probed = true

	if raster, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		img.Raster = raster
	}
	return img
}

// ImageResolutionError reports that a reference could not be resolved by
// any strategy. Err joins the failure of every attempt.
type ImageResolutionError struct {
	Ref string
	Err error
}

func (e *ImageResolutionError) Error() string {
	return fmt.Sprintf("imaging: failed to resolve %s: %v", Redact(e.Ref), e.Err)
}

func (e *ImageResolutionError) Unwrap() error { return e.Err }

// Redact shortens data URIs for logs and error messages.
func Redact(ref string) string {
	if strings.HasPrefix(ref, "data:") && len(ref) > 40 {
		return ref[:40] + "..."
	}
	return ref
}
