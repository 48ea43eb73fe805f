package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

const tesseractName = "tesseract"

// tesseractLanguages maps BCP-47 hints to traineddata names. Tags not listed
// are passed to Tesseract unchanged.
var tesseractLanguages = map[string]string{
	"ja":      "jpn",
	"ja-vert": "jpn_vert",
	"en":      "eng",
	"ko":      "kor",
	"zh-hans": "chi_sim",
	"zh-hant": "chi_tra",
}

// TesseractEngine owns one long-lived Tesseract client. Loading traineddata is
// slow, so the client is built once and shared; the mutex serializes calls.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
	log    *logrus.Entry
}

// NewTesseractEngine builds the shared client with the given page
// segmentation mode (5 reads a single block of vertical text).
func NewTesseractEngine(psm int) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	client.Trim = true
	if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode %d: %w", psm, err)
	}

	return &TesseractEngine{
		client: client,
		log:    logger.WithComponent("engine").WithField("engine", tesseractName),
	}, nil
}

func (t *TesseractEngine) Name() string { return tesseractName }

// Recognize returns the model's text as produced. The client's Trim setting
// only drops the trailing newline Tesseract appends to every page. The
// result never carries segments.
func (t *TesseractEngine) Recognize(ctx context.Context, img image.Canonical, hints []string) (ocr.RecognizedText, error) {
	if err := ctx.Err(); err != nil {
		return ocr.RecognizedText{}, apperrors.EngineFailure(tesseractName, 0, "request cancelled", err)
	}

	text, err := t.run(img.Bytes(), toTesseractLanguages(hints))
	if err != nil {
		return ocr.RecognizedText{}, err
	}

	result, err := tesseractResult(text)
	if err != nil {
		return ocr.RecognizedText{}, err
	}
	t.log.Debugf("recognized %q", result.FullText)
	return result, nil
}

func tesseractResult(text string) (ocr.RecognizedText, error) {
	result := ocr.PlainText(text)
	if result.Empty() {
		return ocr.RecognizedText{}, apperrors.EngineFailure(tesseractName, 0, "no text detected", nil)
	}
	return result, nil
}

func (t *TesseractEngine) run(png []byte, langs []string) (text string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = apperrors.EngineFailure(tesseractName, 0, fmt.Sprintf("tesseract panic: %v", p), nil)
		}
	}()

	if !slices.Equal(langs, t.langs) {
		if err := t.client.SetLanguage(langs...); err != nil {
			return "", apperrors.EngineFailure(tesseractName, 0, "setting languages "+strings.Join(langs, "+"), err)
		}
		t.langs = langs
	}

	if err := t.client.SetImageFromBytes(png); err != nil {
		return "", apperrors.EngineFailure(tesseractName, 0, "loading image", err)
	}

	text, err = t.client.Text()
	if err != nil {
		return "", apperrors.EngineFailure(tesseractName, 0, "recognizing text", err)
	}
	return text, nil
}

func toTesseractLanguages(hints []string) []string {
	if len(hints) == 0 {
		return []string{"jpn"}
	}
	langs := make([]string, 0, len(hints))
	for _, h := range hints {
		if lang, ok := tesseractLanguages[strings.ToLower(h)]; ok {
			langs = append(langs, lang)
			continue
		}
		langs = append(langs, h)
	}
	return langs
}

func (t *TesseractEngine) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
