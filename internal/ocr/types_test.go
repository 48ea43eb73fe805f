package ocr

import (
	"testing"
)

func TestFromSegments(t *testing.T) {
	segments := []Segment{
		{Text: "あの悪魔の．．．\n私の手柄を．．．", BoundingPolygon: []Vertex{{0, 0}, {100, 0}, {100, 50}, {0, 50}}},
		{Text: "あの", BoundingPolygon: []Vertex{{10, 5}, {20, 5}, {20, 9}}},
	}

	got := FromSegments(segments)

	if got.FullText != segments[0].Text {
		t.Errorf("FullText = %q, want %q", got.FullText, segments[0].Text)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(got.Segments))
	}
	if got.Empty() {
		t.Error("Empty() = true for recognized text")
	}
}

func TestPlainTextAndEmpty(t *testing.T) {
	testCases := []struct {
		text  string
		empty bool
	}{
		{"", true},
		{" \n\t", true},
		{"あの悪魔の．．．私の手柄を．．．", false},
	}

	for _, tc := range testCases {
		r := PlainText(tc.text)
		if r.Segments == nil || len(r.Segments) != 0 {
			t.Errorf("PlainText(%q).Segments = %v, want empty non-nil", tc.text, r.Segments)
		}
		if r.Empty() != tc.empty {
			t.Errorf("PlainText(%q).Empty() = %v, want %v", tc.text, r.Empty(), tc.empty)
		}
	}

	if !FromSegments(nil).Empty() {
		t.Error("FromSegments(nil) should be empty")
	}
}

func TestFormatPolygon(t *testing.T) {
	got := FormatPolygon([]Vertex{{0, 0}, {100, 0}, {100, 50}, {0, 50}})
	want := "(0, 0), (100, 0), (100, 50), (0, 50)"
	if got != want {
		t.Errorf("FormatPolygon() = %q, want %q", got, want)
	}
}
