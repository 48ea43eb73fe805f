package data

import (
	"strconv"
	"strings"

	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

// PageText is one row of batch output: the text recognized on one page image.
type PageText struct {
	Filename string
	Engine   string
	Text     string
	Segments []ocr.Segment
}

func NewPageText(filename, engine string, text ocr.RecognizedText) PageText {
	return PageText{
		Filename: filename,
		Engine:   engine,
		Text:     text.FullText,
		Segments: text.Segments,
	}
}

// Bounds is the polygon of the whole-text region, or "" without geometry.
func (p PageText) Bounds() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return ocr.FormatPolygon(p.Segments[0].BoundingPolygon)
}

// Regions lists the per-region texts after the whole-text segment.
func (p PageText) Regions() []string {
	if len(p.Segments) < 2 {
		return nil
	}
	regions := make([]string, 0, len(p.Segments)-1)
	for _, s := range p.Segments[1:] {
		regions = append(regions, s.Text)
	}
	return regions
}

func MapCSVRecord(item PageText) []string {
	return []string{
		item.Filename,
		item.Engine,
		item.Text,
		strconv.Itoa(len(item.Segments)),
		item.Bounds(),
		strings.Join(item.Regions(), " | "),
	}
}

func GetCSVHeader() []string {
	return []string{"Filename", "Engine", "Text", "Segments", "Bounds", "Regions"}
}
