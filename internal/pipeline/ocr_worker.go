package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Goluxas/jp-image-to-dict/internal/data"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
)

func (b *batch) performOcr(ctx context.Context, pages <-chan page, out chan<- result[data.PageText]) {
	for p := range pages {
		res := result[data.PageText]{path: p.path, err: p.err}

		if p.err == nil {
			logger.DebugLog("[performOcr]: processing image %s", p.path)
			text, err := b.engine.Recognize(ctx, p.img, b.hints)
			if err != nil {
				res.err = fmt.Errorf("recognizing %s: %w", p.path, err)
			} else {
				res.data = data.NewPageText(filepath.Base(p.path), b.engine.Name(), text)
			}
		}

		logger.DebugLog("[performOcr]: sending OCR result for %s (err=%v)", p.path, res.err)
		select {
		case out <- res:
		case <-ctx.Done():
			logger.DebugLog("[performOcr]: context done while sending OCR result for %s", p.path)
			return
		}
	}
}
