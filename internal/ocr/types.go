package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/Goluxas/jp-image-to-dict/internal/image"
)

// Vertex is one corner of a bounding polygon in image pixel coordinates.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Segment is one recognized text region. BoundingPolygon keeps the vertices in
// the order the backend reported them.
type Segment struct {
	Text            string   `json:"text"`
	BoundingPolygon []Vertex `json:"bounding_polygon"`
}

// RecognizedText is the result of a successful recognition. Segments is empty
// for backends without geometry; otherwise Segments[0] is the whole-image
// region and its Text equals FullText.
type RecognizedText struct {
	FullText string
	Segments []Segment
}

// PlainText builds a result for backends that only return text.
func PlainText(text string) RecognizedText {
	return RecognizedText{FullText: text, Segments: []Segment{}}
}

// FromSegments builds a result whose full text is the first segment.
func FromSegments(segments []Segment) RecognizedText {
	if len(segments) == 0 {
		return RecognizedText{Segments: []Segment{}}
	}
	return RecognizedText{FullText: segments[0].Text, Segments: segments}
}

// Empty reports whether nothing but whitespace was recognized.
func (r RecognizedText) Empty() bool {
	return strings.TrimSpace(r.FullText) == ""
}

func (v Vertex) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}

// FormatPolygon renders vertices as "(x, y), (x, y), ...".
func FormatPolygon(vertices []Vertex) string {
	parts := make([]string, len(vertices))
	for i, v := range vertices {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Engine recognizes text in a canonical image. hints are BCP-47 language tags
// such as "ja". Failures are *errors.Error values of kind EngineFailure.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Canonical, hints []string) (RecognizedText, error)
	Close() error
}
