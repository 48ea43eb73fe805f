package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

const ollamaName = "ollama"

// OllamaEngine asks a local vision model served by Ollama to transcribe the
// image. It returns plain text only.
type OllamaEngine struct {
	baseURL string
	model   string
	client  *http.Client
	log     *logrus.Entry
}

type OllamaRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Format string   `json:"format"`
	Stream bool     `json:"stream"`
}

type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2-vision"
)

var languageNames = map[string]string{
	"ja": "Japanese",
	"en": "English",
	"ko": "Korean",
	"zh": "Chinese",
}

func NewOllamaEngine(baseURL, model string, timeout time.Duration) *OllamaEngine {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	return &OllamaEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     logger.WithComponent("engine").WithField("engine", ollamaName),
	}
}

func (o *OllamaEngine) Name() string { return ollamaName }

func (o *OllamaEngine) Recognize(ctx context.Context, img image.Canonical, hints []string) (ocr.RecognizedText, error) {
	request := OllamaRequest{
		Model:  o.model,
		Prompt: transcriptionPrompt(hints),
		Images: []string{base64.StdEncoding.EncodeToString(img.Bytes())},
		Format: "json",
		Stream: false,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return ocr.RecognizedText{}, fmt.Errorf("marshalling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return ocr.RecognizedText{}, fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	o.log.WithField("model", o.model).Debug("awaiting response from ollama")
	resp, err := o.client.Do(req)
	if err != nil {
		detail := "ollama request failed"
		var netErr interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			detail = "ollama request timed out"
		}
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, 0, detail, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, resp.StatusCode, "reading ollama response", err)
	}

	var ollamaResp OllamaResponse
	if resp.StatusCode != http.StatusOK {
		// Error bodies are best effort; the status alone is enough to fail.
		_ = json.Unmarshal(payload, &ollamaResp)
		detail := fmt.Sprintf("ollama request failed with status %d", resp.StatusCode)
		if ollamaResp.Error != "" {
			detail += ": " + ollamaResp.Error
		}
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, resp.StatusCode, detail, nil)
	}

	if err := json.Unmarshal(payload, &ollamaResp); err != nil {
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, 0, "decoding ollama response", err)
	}

	raw, err := extractJSON(ollamaResp.Response)
	if err != nil {
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, 0, "model reply carried no transcription", err)
	}

	var t transcription
	if err := json.Unmarshal(raw, &t); err != nil {
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, 0, "model reply is not a transcription object", err)
	}

	result := ocr.PlainText(strings.TrimSpace(t.Text))
	if result.Empty() {
		return ocr.RecognizedText{}, apperrors.EngineFailure(ollamaName, 0, "no text detected", nil)
	}
	o.log.Debugf("recognized %q", result.FullText)
	return result, nil
}

func (o *OllamaEngine) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func transcriptionPrompt(hints []string) string {
	language := "Japanese"
	if len(hints) > 0 {
		primary := strings.ToLower(strings.SplitN(hints[0], "-", 2)[0])
		if name, ok := languageNames[primary]; ok {
			language = name
		}
	}

	return fmt.Sprintf(`
You are an OCR helper for comic pages.
Transcribe every piece of %s text in the image exactly as written.

* Keep the original script, punctuation and full-width characters.
* Do not translate, romanize, explain or add furigana.
* Separate speech bubbles with a newline.
* Return **only** a JSON object with this exact schema:

{"text": "<transcribed text or empty string>"}
`, language)
}

// extractJSON returns the first balanced JSON object in input, skipping any
// prose the model wrapped around it. Braces inside strings are ignored.
func extractJSON(input string) (json.RawMessage, error) {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return nil, fmt.Errorf("no JSON found in text")
	}

	depth := 0
	inString := false
	escaped := false
	end := -1

scan:
	for i := start; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				end = i + 1
				break scan
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	raw := input[start:end]
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("extracted text is not valid JSON")
	}

	return json.RawMessage(raw), nil
}
