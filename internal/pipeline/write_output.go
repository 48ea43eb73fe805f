package pipeline

import (
	"context"
	"fmt"

	"github.com/Goluxas/jp-image-to-dict/internal/data"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/writer"
)

func (b *batch) writeOutput(ctx context.Context, recognized <-chan result[data.PageText], results *writeResult[data.PageText]) {
	if b.replace {
		// Truncate even when no page of this run succeeds.
		if err := b.writer.Write(b.output, writer.ModeReplace); err != nil {
			logger.DebugLog("[writeOutput]: error truncating %s: %v", b.output, err)
			results.addFailure(b.output, fmt.Errorf("truncating %s: %w", b.output, err))
		}
	}

	for res := range recognized {
		if ctx.Err() != nil {
			logger.DebugLog("[writeOutput]: context cancelled")
			return
		}

		if res.err != nil {
			logger.DebugLog("[writeOutput]: failure for %s: %v", res.path, res.err)
			results.addFailure(res.path, res.err)
			continue
		}

		logger.DebugLog("[writeOutput]: writing data for %s", res.path)
		if err := b.writer.Write(b.output, writer.ModeAppend, res.data); err != nil {
			logger.DebugLog("[writeOutput]: error writing to file %s: %v", b.output, err)
			results.addFailure(res.path, fmt.Errorf("writing to file %s: %w", b.output, err))
			continue
		}

		results.addWrite(res.path, res.data)
	}
}
