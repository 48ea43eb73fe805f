package image

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
)

// Source is where an image comes from: a file path, raw bytes, a stream, the
// clipboard, or an already-decoded image. Sources are single use.
type Source interface {
	decode(maxPixels int64) (image.Image, error)
	String() string
}

// ClipboardReader yields the clipboard's image as encoded bytes, or nil when
// the clipboard holds no image.
type ClipboardReader interface {
	ReadImage() ([]byte, error)
}

type pathSource struct{ path string }

// FromPath reads the image stored at path.
func FromPath(path string) Source { return pathSource{path: path} }

func (s pathSource) String() string { return "file " + s.path }

func (s pathSource) decode(maxPixels int64) (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", s.path, err)
	}
	defer f.Close()
	return decodeReader(f, maxPixels)
}

type bytesSource struct{ data []byte }

// FromBytes decodes an in-memory encoded image.
func FromBytes(data []byte) Source { return bytesSource{data: data} }

func (s bytesSource) String() string { return fmt.Sprintf("%d bytes", len(s.data)) }

func (s bytesSource) decode(maxPixels int64) (image.Image, error) {
	return decodeReader(bytes.NewReader(s.data), maxPixels)
}

type readerSource struct{ r io.Reader }

// FromReader decodes an image streamed from r, such as an uploaded file.
func FromReader(r io.Reader) Source { return readerSource{r: r} }

func (s readerSource) String() string { return "stream" }

func (s readerSource) decode(maxPixels int64) (image.Image, error) {
	return decodeReader(s.r, maxPixels)
}

type clipboardSource struct{ c ClipboardReader }

// FromClipboard captures the current clipboard image.
func FromClipboard(c ClipboardReader) Source { return clipboardSource{c: c} }

func (s clipboardSource) String() string { return "clipboard" }

func (s clipboardSource) decode(maxPixels int64) (image.Image, error) {
	data, err := s.c.ReadImage()
	if err != nil {
		return nil, fmt.Errorf("reading clipboard: %w", err)
	}
	if len(data) == 0 {
		return nil, apperrors.ClipboardEmpty("clipboard does not hold an image")
	}
	return decodeReader(bytes.NewReader(data), maxPixels)
}

type imageSource struct{ img image.Image }

// FromImage wraps an image that is already decoded.
func FromImage(img image.Image) Source { return imageSource{img: img} }

func (s imageSource) String() string { return "in-memory image" }

func (s imageSource) decode(maxPixels int64) (image.Image, error) {
	if s.img == nil {
		return nil, apperrors.UnrecognizedFormat("nil image", nil)
	}
	return s.img, nil
}

// decodeReader sniffs the format from the data itself. The header is checked
// against maxPixels before any pixel buffer is allocated, since a few bytes of
// header can claim gigabytes of pixels. EXIF orientation is left alone so
// pixels pass through untouched.
func decodeReader(r io.Reader, maxPixels int64) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img = nil
			err = apperrors.UnrecognizedFormat(fmt.Sprintf("decoder panic: %v", p), nil)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.UnrecognizedFormat("image file is an unknown format, corrupt, or incomplete", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperrors.UnrecognizedFormat(fmt.Sprintf("image has no pixels (%dx%d)", cfg.Width, cfg.Height), nil)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, apperrors.UnrecognizedFormat(
			fmt.Sprintf("image header claims %dx%d pixels, above the %d pixel limit", cfg.Width, cfg.Height, maxPixels), nil)
	}

	img, err = imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.UnrecognizedFormat("image file is an unknown format, corrupt, or incomplete", err)
	}
	return img, nil
}
