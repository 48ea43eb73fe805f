package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/Goluxas/jp-image-to-dict/internal/config"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Engine:        config.EngineOllama,
		OllamaURL:     "http://ollama.internal:11434",
		OllamaModel:   "manga-vision",
		OllamaTimeout: time.Second,
	}

	e, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	o, ok := e.(*OllamaEngine)
	if !ok {
		t.Fatalf("New() returned %T, want *OllamaEngine", e)
	}
	if o.baseURL != cfg.OllamaURL || o.model != cfg.OllamaModel {
		t.Errorf("engine built with %s/%s", o.baseURL, o.model)
	}

	cfg.Engine = "paddle"
	if _, err := New(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "unknown engine type") {
		t.Errorf("New(paddle) error = %v, want unknown engine type", err)
	}
}

// Swapping backends may change how much geometry comes back but never the
// recognized text.
func TestEngineSwapKeepsFullText(t *testing.T) {
	img := canonicalFixture(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply, _ := json.Marshal(map[string]string{"text": mangaLine})
		json.NewEncoder(w).Encode(OllamaResponse{Response: string(reply), Done: true})
	}))
	defer srv.Close()

	cloud := newCloudVisionEngine(&fakeAnnotator{resp: singleResponse(&visionpb.AnnotateImageResponse{
		TextAnnotations: []*visionpb.EntityAnnotation{
			annotation(mangaLine, [2]int32{0, 0}, [2]int32{100, 0}, [2]int32{100, 50}, [2]int32{0, 50}),
		},
	})}, time.Second)

	engines := []ocr.Engine{cloud, NewOllamaEngine(srv.URL, "test-model", time.Second)}

	var segmentCounts []int
	for _, e := range engines {
		got, err := e.Recognize(context.Background(), img, []string{"ja"})
		if err != nil {
			t.Fatalf("%s: Recognize() error = %v", e.Name(), err)
		}
		if got.FullText != mangaLine {
			t.Errorf("%s: FullText = %q, want %q", e.Name(), got.FullText, mangaLine)
		}
		segmentCounts = append(segmentCounts, len(got.Segments))
	}

	if segmentCounts[0] != 1 || segmentCounts[1] != 0 {
		t.Errorf("segment counts = %v, want [1 0]", segmentCounts)
	}
}
