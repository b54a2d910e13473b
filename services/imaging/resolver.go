package imaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Resolver acquires and decodes image references. Nothing is cached: every
// call reads the source again.
type Resolver struct {
	Inline  ImageFetcher
	Assets  ImageFetcher
	Network ImageFetcher

	// PublicOrigin is prepended to relative references when the asset
	// fast path fails, e.g. "https://rentline.example".
	PublicOrigin string
	// Timeout bounds one Resolve call. Zero means no extra deadline.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewResolver wires the three standard fetchers.
func NewResolver(assets ImageFetcher, publicOrigin string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		Inline:       InlineFetcher{},
		Assets:       assets,
		Network:      NewNetworkFetcher(),
		PublicOrigin: strings.TrimRight(publicOrigin, "/"),
		Timeout:      timeout,
		Logger:       logger,
	}
}

// Resolve returns the decoded image for ref. Failures are reported as
// *ImageResolutionError wrapping every attempt's cause.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*ResolvedImage, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &ImageResolutionError{Ref: ref, Err: ErrUnsupportedReference}
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var (
		img *ResolvedImage
		err error
	)
	switch Classify(ref) {
	case KindInline:
		img, err = r.inline(ctx, ref)
	case KindAbsolute:
		img, err = r.remote(ctx, ref)
	default:
		img, err = r.relative(ctx, ref)
	}
	if err != nil {
		return nil, &ImageResolutionError{Ref: ref, Err: err}
	}
	return img, nil
}

func (r *Resolver) inline(ctx context.Context, ref string) (*ResolvedImage, error) {
	fetcher := r.Inline
	if fetcher == nil {
		fetcher = InlineFetcher{}
	}
	data, mimeType, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img := decode(data, formatOf(mimeType))
	img.Resolved = ref
	if !img.Probed {
		r.logger().Debug("image probe failed, using fallback dimensions",
			zap.String("ref", Redact(ref)), zap.String("mime", mimeType))
	}
	return img, nil
}

// remote downloads ref and runs the bytes back through the inline path so
// every source ends up probed the same way.
func (r *Resolver) remote(ctx context.Context, ref string) (*ResolvedImage, error) {
	if r.Network == nil {
		return nil, errNoFetcher
	}
	data, mimeType, err := r.Network.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err := r.inline(ctx, EncodeDataURI(mimeType, data))
	if err != nil {
		return nil, err
	}
	img.Resolved = ref
	return img, nil
}

func (r *Resolver) relative(ctx context.Context, ref string) (*ResolvedImage, error) {
	var errs []error

	if r.Assets != nil {
		data, mimeType, err := r.Assets.Fetch(ctx, ref)
		if err == nil {
			img := decode(data, formatOf(mimeType))
			if img.Raster != nil {
				img.Resolved = ref
				return img, nil
			}
			err = fmt.Errorf("imaging: asset %s did not decode", ref)
		}
		if errors.Is(err, ErrNotAnImage) {
			return nil, err
		}
		errs = append(errs, fmt.Errorf("asset: %w", err))
	} else {
		errs = append(errs, fmt.Errorf("asset: %w", errNoFetcher))
	}

	if r.PublicOrigin == "" {
		errs = append(errs, fmt.Errorf("network: no public origin configured"))
		return nil, errors.Join(errs...)
	}
	target := r.PublicOrigin + "/" + strings.TrimLeft(ref, "/")
	r.logger().Debug("asset lookup failed, fetching from origin",
		zap.String("ref", ref), zap.String("url", target))

	img, err := r.remote(ctx, target)
	if err != nil {
		errs = append(errs, fmt.Errorf("network: %w", err))
		return nil, errors.Join(errs...)
	}
	return img, nil
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
