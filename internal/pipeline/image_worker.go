package pipeline

import (
	"context"

	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
)

type page struct {
	path string
	img  image.Canonical
	err  error
}

// normalizePages converts each file to a canonical image. Decode failures
// travel downstream with the page so they are reported, not dropped.
func normalizePages(ctx context.Context, maxPixels int64, files <-chan string, pages chan<- page) {
	for file := range files {
		logger.DebugLog("[normalizePages]: normalizing %s", file)
		img, err := image.Normalize(image.FromPath(file), image.WithMaxPixels(maxPixels))
		if err != nil {
			logger.DebugLog("[normalizePages]: error normalizing %s: %v", file, err)
		}

		select {
		case pages <- page{path: file, img: img, err: err}:
		case <-ctx.Done():
			logger.DebugLog("[normalizePages]: context done while sending %s", file)
			return
		}
	}
}
