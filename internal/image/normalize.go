package image

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/Goluxas/jp-image-to-dict/internal/logger"
)

// Canonical is a PNG-encoded image. Only Normalize produces one.
type Canonical struct {
	data []byte
}

// Bytes returns the PNG encoding. Callers must not modify it.
func (c Canonical) Bytes() []byte { return c.data }

func (c Canonical) Len() int { return len(c.data) }

// Decode turns the canonical bytes back into pixels.
func (c Canonical) Decode() (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(c.data))
	if err != nil {
		return nil, fmt.Errorf("decoding canonical png: %w", err)
	}
	return img, nil
}

// DefaultMaxPixels bounds the pixel count an image header may claim.
const DefaultMaxPixels int64 = 50_000_000

type options struct {
	maxPixels int64
}

// Option tunes Normalize.
type Option func(*options)

// WithMaxPixels rejects images whose header claims more than n pixels.
// Non-positive values keep DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

// Normalize decodes src in whatever format it arrives and re-encodes it as
// PNG. Pixels are not resized, rotated or color-converted.
func Normalize(src Source, opts ...Option) (Canonical, error) {
	o := options{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&o)
	}

	img, err := src.decode(o.maxPixels)
	if err != nil {
		return Canonical{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Canonical{}, fmt.Errorf("encoding %s as png: %w", src, err)
	}

	b := img.Bounds()
	logger.DebugLog("[normalize]: %s -> %dx%d png (%d bytes)", src, b.Dx(), b.Dy(), buf.Len())
	return Canonical{data: buf.Bytes()}, nil
}
