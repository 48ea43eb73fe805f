// Package clipboard reads images from the system clipboard.
package clipboard

import (
	"fmt"

	"golang.design/x/clipboard"
)

// Reader satisfies image.ClipboardReader for the OS clipboard.
type Reader struct{}

// New initializes the platform clipboard. It fails on headless systems with
// no clipboard service.
func New() (*Reader, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("initializing clipboard: %w", err)
	}
	return &Reader{}, nil
}

// ReadImage returns the clipboard image as PNG bytes, or nil when the
// clipboard holds text or nothing at all.
func (r *Reader) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}
