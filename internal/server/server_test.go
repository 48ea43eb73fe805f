package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Goluxas/jp-image-to-dict/internal/config"
	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

const mangaLine = "あの悪魔の．．．私の手柄を．．．"

type fakeEngine struct {
	result ocr.RecognizedText
	err    error
	calls  int
	hints  []string
	got    image.Canonical
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, img image.Canonical, hints []string) (ocr.RecognizedText, error) {
	f.calls++
	f.hints = hints
	f.got = img
	return f.result, f.err
}

func (f *fakeEngine) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		LanguageHints:  []string{"ja"},
		CORSOrigins:    []string{"https://reader.example.com"},
		MaxUploadBytes: 1 << 20,
	}
}

func jpegFixture(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 16, 16))
	img.Set(4, 4, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// oversizedPNG is a 47-byte PNG whose header claims 60000x60000 RGBA pixels.
func oversizedPNG() []byte {
	chunk := func(kind string, data []byte) []byte {
		var b bytes.Buffer
		binary.Write(&b, binary.BigEndian, uint32(len(data)))
		b.WriteString(kind)
		b.Write(data)
		binary.Write(&b, binary.BigEndian, crc32.ChecksumIEEE(append([]byte(kind), data...)))
		return b.Bytes()
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 60000)
	binary.BigEndian.PutUint32(ihdr[4:8], 60000)
	ihdr[8], ihdr[9] = 8, 6

	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	b.Write(chunk("IHDR", ihdr))
	b.Write(chunk("IDAT", []byte{0x78, 0x9c}))
	return b.Bytes()
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "page.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/ocr/png/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleOCR(t *testing.T) {
	testCases := []struct {
		name       string
		engine     *fakeEngine
		field      string
		data       func(*testing.T) []byte
		wantStatus int
		wantText   string
		wantDetail string
		wantCalls  int
	}{
		{
			name: "recognized",
			engine: &fakeEngine{result: ocr.FromSegments([]ocr.Segment{
				{Text: mangaLine, BoundingPolygon: []ocr.Vertex{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}}},
			})},
			field:      "file",
			data:       jpegFixture,
			wantStatus: http.StatusOK,
			wantText:   mangaLine,
			wantCalls:  1,
		},
		{
			name:       "corrupt image",
			engine:     &fakeEngine{},
			field:      "file",
			data:       func(*testing.T) []byte { return []byte("not an image") },
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: unrecognizedImageDetail,
		},
		{
			name:       "empty upload",
			engine:     &fakeEngine{},
			field:      "file",
			data:       func(*testing.T) []byte { return nil },
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: unrecognizedImageDetail,
		},
		{
			name:       "header claims oversized image",
			engine:     &fakeEngine{},
			field:      "file",
			data:       func(*testing.T) []byte { return oversizedPNG() },
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: unrecognizedImageDetail,
		},
		{
			name:       "missing field",
			engine:     &fakeEngine{},
			field:      "image",
			data:       jpegFixture,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "Field 'file' is required.",
		},
		{
			name:       "engine failure",
			engine:     &fakeEngine{err: apperrors.EngineFailure("fake", 7, "cloud vision error 7: permission denied", nil)},
			field:      "file",
			data:       jpegFixture,
			wantStatus: http.StatusBadGateway,
			wantDetail: "cloud vision error 7: permission denied",
			wantCalls:  1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			srv := New(tc.engine, testConfig())
			rec := httptest.NewRecorder()

			// act
			srv.Handler().ServeHTTP(rec, uploadRequest(t, tc.field, tc.data(t)))

			// assert
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body)
			}
			if tc.engine.calls != tc.wantCalls {
				t.Errorf("engine calls = %d, want %d", tc.engine.calls, tc.wantCalls)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if tc.wantText != "" && body["captured_text"] != tc.wantText {
				t.Errorf("captured_text = %v, want %q", body["captured_text"], tc.wantText)
			}
			if tc.wantDetail != "" && body["detail"] != tc.wantDetail {
				t.Errorf("detail = %v, want %q", body["detail"], tc.wantDetail)
			}
		})
	}
}

func TestHandleOCR_PassesCanonicalImageAndHints(t *testing.T) {
	engine := &fakeEngine{result: ocr.PlainText(mangaLine)}
	rec := httptest.NewRecorder()

	New(engine, testConfig()).Handler().ServeHTTP(rec, uploadRequest(t, "file", jpegFixture(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.HasPrefix(engine.got.Bytes(), []byte("\x89PNG")) {
		t.Error("engine did not receive png bytes")
	}
	if len(engine.hints) != 1 || engine.hints[0] != "ja" {
		t.Errorf("hints = %v, want [ja]", engine.hints)
	}

	var body captureResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Segments != nil {
		t.Errorf("segments = %v, want omitted", body.Segments)
	}
}

func TestHandleOCR_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 2048
	engine := &fakeEngine{}
	rec := httptest.NewRecorder()

	New(engine, cfg).Handler().ServeHTTP(rec, uploadRequest(t, "file", bytes.Repeat([]byte{0xff}, 10_000)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if engine.calls != 0 {
		t.Error("engine called for oversized upload")
	}
}

func TestHandleRoot(t *testing.T) {
	rec := httptest.NewRecorder()

	New(&fakeEngine{}, testConfig()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != "Hello World" || body["engine"] != "fake" {
		t.Errorf("body = %v", body)
	}
}

func TestCORS(t *testing.T) {
	testCases := []struct {
		origin  string
		allowed bool
	}{
		{"https://reader.example.com", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"http://10.0.2.2:5555", true},
		{"http://localhost", true},
		{"https://evil.example.com", false},
		{"http://localhost.evil.com", false},
		{"http://10.0.2.20:80", false},
	}

	handler := New(&fakeEngine{}, testConfig()).Handler()
	for _, tc := range testCases {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/ocr/png/", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin") == tc.origin
			if got != tc.allowed {
				t.Errorf("allowed = %v, want %v (headers %v)", got, tc.allowed, rec.Header())
			}
		})
	}
}
