// Package pipeline recognizes every page image in a directory and exports the
// text to CSV.
package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Goluxas/jp-image-to-dict/internal/data"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
	"github.com/Goluxas/jp-image-to-dict/internal/writer"
)

// ErrorKey holds a run-level failure in the failures map Run returns. It is
// not a page.
const ErrorKey = "pipeline_error"

type result[T any] struct {
	path string
	data T
	err  error
}

type writeResult[T any] struct {
	mu       sync.Mutex
	writes   map[string]T
	failures map[string]error
}

// Options tunes a batch run.
type Options struct {
	Workers   int
	Hints     []string
	// MaxPixels bounds each page's claimed size; zero keeps the image default.
	MaxPixels int64
	// Replace truncates the output file instead of appending to it.
	Replace   bool
}

type batch struct {
	engine    ocr.Engine
	hints     []string
	maxPixels int64
	writer    *writer.CSVWriter[data.PageText]
	output    string
	replace   bool
}

// Run feeds each image in directory through normalization and the engine,
// appending a row per page to outputFile. Per-page failures are collected and
// do not stop the run; a failure to list the directory does.
func Run(ctx context.Context, engine ocr.Engine, directory, outputFile string, opts Options) (writes map[string]data.PageText, failures map[string]error) {
	logger.DebugLog("Pipeline started with engine=%s, directory=%s, output=%s", engine.Name(), directory, outputFile)

	b := &batch{
		engine:    engine,
		hints:     opts.Hints,
		maxPixels: opts.MaxPixels,
		writer:    writer.NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader),
		output:    outputFile,
		replace:   opts.Replace,
	}
	defer b.writer.Close()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := &writeResult[data.PageText]{
		writes:   make(map[string]data.PageText),
		failures: make(map[string]error),
	}

	g, ctx := errgroup.WithContext(ctx)

	files := make(chan string)                         // Unbuffered channel for file paths
	pages := make(chan page, workers)                  // Normalized pages waiting for a worker
	recognized := make(chan result[data.PageText], 10) // Recognized pages waiting to be written

	g.Go(func() error {
		defer close(files)
		logger.DebugLog("Starting [walkFiles] goroutine")
		defer logger.DebugLog("[walkFiles] goroutine finished")
		return walkFiles(ctx, directory, files)
	})

	g.Go(func() error {
		defer close(pages)
		logger.DebugLog("Starting [normalizePages] goroutine")
		defer logger.DebugLog("[normalizePages] goroutine finished")
		normalizePages(ctx, b.maxPixels, files, pages)
		return nil
	})

	g.Go(func() error {
		defer close(recognized)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()
				logger.DebugLog("Starting [performOcr] worker #%d", worker+1)
				defer logger.DebugLog("[performOcr] worker #%d finished", worker+1)
				b.performOcr(ctx, pages, recognized)
			}(i)
		}
		wg.Wait()
		logger.DebugLog("All [performOcr] workers finished, closing recognized")
		return nil
	})

	g.Go(func() error {
		logger.DebugLog("Starting [writeOutput] goroutine")
		defer logger.DebugLog("[writeOutput] goroutine finished")
		b.writeOutput(ctx, recognized, results)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.DebugLog("Pipeline error: %v", err)
		results.addFailure(ErrorKey, err)
	}

	logger.DebugLog("Pipeline finished")
	return results.writes, results.failures
}

func (r *writeResult[T]) addWrite(path string, data T) {
	r.mu.Lock()
	r.writes[path] = data
	r.mu.Unlock()
}

func (r *writeResult[T]) addFailure(path string, err error) {
	r.mu.Lock()
	r.failures[path] = err
	r.mu.Unlock()
}
