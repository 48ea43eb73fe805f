package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Goluxas/jp-image-to-dict/internal/clipboard"
	"github.com/Goluxas/jp-image-to-dict/internal/config"
	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/lookup"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr/engine"
	"github.com/Goluxas/jp-image-to-dict/internal/pipeline"
)

type CLI struct {
	imagePath  string
	imagesDir  string
	outputDir  string
	engineType string
	translate  bool
	noOpen     bool
	replace    bool
}

func NewCLI() *CLI {
	return &CLI{
		outputDir: "output",
	}
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ocr-tool", flag.ContinueOnError)

	fs.StringVar(&c.imagePath, "image", c.imagePath, "Image file to read (default: the clipboard)")
	fs.StringVar(&c.imagesDir, "images", c.imagesDir, "Directory of page images to recognize in batch")
	fs.StringVar(&c.outputDir, "output", c.outputDir, "Output directory for batch results")
	fs.StringVar(&c.engineType, "engine", c.engineType, "OCR engine type (cloud, local, ollama); overrides OCR_ENGINE")
	fs.BoolVar(&c.translate, "translate", c.translate, "Open a translation instead of a dictionary lookup")
	fs.BoolVar(&c.translate, "t", c.translate, "Shorthand for -translate")
	fs.BoolVar(&c.noOpen, "no-open", c.noOpen, "Print the lookup link instead of opening a browser")
	fs.BoolVar(&c.replace, "replace", c.replace, "Overwrite the batch CSV instead of appending")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger.SetDebug(cfg.Debug)

	ocrEngine, err := engine.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating OCR engine: %w", err)
	}
	defer func() {
		logger.DebugLog("Closing OCR engine")
		ocrEngine.Close()
	}()

	if c.imagesDir != "" {
		return c.processBatch(ctx, ocrEngine, cfg)
	}
	return c.processOne(ctx, ocrEngine, cfg)
}

func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if c.engineType != "" {
		cfg.Engine = strings.ToLower(c.engineType)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid -engine flag: %w", err)
		}
	}
	return cfg, nil
}

func (c *CLI) source() (image.Source, error) {
	if c.imagePath != "" {
		return image.FromPath(c.imagePath), nil
	}
	reader, err := clipboard.New()
	if err != nil {
		return nil, err
	}
	return image.FromClipboard(reader), nil
}

func (c *CLI) processOne(ctx context.Context, ocrEngine ocr.Engine, cfg *config.Config) error {
	src, err := c.source()
	if err != nil {
		return err
	}

	img, err := image.Normalize(src, image.WithMaxPixels(cfg.MaxImagePixels))
	switch {
	case errors.Is(err, apperrors.ErrClipboardEmpty):
		return fmt.Errorf("no image on the clipboard, copy a screenshot of the panel first: %w", err)
	case errors.Is(err, apperrors.ErrUnrecognizedFormat):
		return fmt.Errorf("image file is an unknown format, corrupt, or incomplete: %w", err)
	case err != nil:
		return err
	}

	fmt.Printf("Awaiting response from %s...\n", ocrEngine.Name())
	text, err := ocrEngine.Recognize(ctx, img, cfg.LanguageHints)
	if err != nil {
		return err
	}

	fmt.Println(text.FullText)
	if len(text.Segments) > 0 {
		fmt.Printf("Bounds: %s\n", ocr.FormatPolygon(text.Segments[0].BoundingPolygon))
	}

	link := lookup.DictionaryURL(text.FullText)
	if c.translate {
		link = lookup.TranslationURL(text.FullText, primaryLanguage(cfg.LanguageHints), "en")
	}

	if c.noOpen {
		fmt.Println(link)
		return nil
	}
	return lookup.Open(link)
}

func (c *CLI) processBatch(ctx context.Context, ocrEngine ocr.Engine, cfg *config.Config) error {
	outputFile := filepath.Join(c.outputDir, fmt.Sprintf("%s_captured_text.csv", ocrEngine.Name()))

	results, failures := pipeline.Run(ctx, ocrEngine, c.imagesDir, outputFile, pipeline.Options{
		Workers:   cfg.BatchWorkers,
		Hints:     cfg.LanguageHints,
		Replace:   c.replace,
		MaxPixels: cfg.MaxImagePixels,
	})

	for _, path := range sortedKeys(failures) {
		fmt.Printf("Error processing %s: %v\n", path, failures[path])
	}
	for _, path := range sortedKeys(results) {
		fmt.Printf("Processed %s: %q\n", path, results[path].Text)
	}
	fmt.Printf("\nProcessing complete! Results saved to: %s\n", outputFile)
	fmt.Printf("Processed %d records\n", processedCount(results, failures))

	return failures[pipeline.ErrorKey]
}

// primaryLanguage reduces the first hint to its base subtag ("ja-Vert" -> "ja").
func primaryLanguage(hints []string) string {
	if len(hints) == 0 {
		return "ja"
	}
	return strings.ToLower(strings.SplitN(hints[0], "-", 2)[0])
}

// processedCount counts pages, leaving out a run-level pipeline failure.
func processedCount[V any](results map[string]V, failures map[string]error) int {
	n := len(results) + len(failures)
	if _, ok := failures[pipeline.ErrorKey]; ok {
		n--
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
