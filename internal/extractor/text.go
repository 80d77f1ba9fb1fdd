package extractor

import (
	"regexp"
	"strings"

	"brightedge-go-etl/internal/models"
)

// HTML segments are opaque: one record, no extracted fields.
type HTML struct{}

func (HTML) Type() models.ContentType { return models.ContentHTML }

func (HTML) Extract(models.Segment) ([]*models.Fields, error) {
	return []*models.Fields{models.NewFields()}, nil
}

var blankLineRe = regexp.MustCompile(`\n[ \t\r]*\n`)

type Text struct{}

func (Text) Type() models.ContentType { return models.ContentText }

// Extract yields one record per non-empty paragraph.
func (Text) Extract(seg models.Segment) ([]*models.Fields, error) {
	var out []*models.Fields
	for range Paragraphs(seg.Raw) {
		out = append(out, models.NewFields())
	}
	return out, nil
}

// Paragraphs splits s on blank lines, dropping empty pieces.
func Paragraphs(s string) []string {
	var out []string
	for _, p := range blankLineRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
