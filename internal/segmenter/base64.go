package segmenter

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"brightedge-go-etl/internal/models"
)

var base64RunRe = regexp.MustCompile(`[A-Za-z0-9+/]+={0,2}`)

type base64Finder struct {
	minLen int
}

func newBase64Finder(minLen int) *base64Finder { return &base64Finder{minLen: minLen} }

// spans flags every base64-looking run inside raw.
func (f *base64Finder) spans(raw string) []models.Span {
	var out []models.Span
	for _, loc := range base64RunRe.FindAllStringIndex(raw, -1) {
		if _, ok := f.decode(raw[loc[0]:loc[1]]); ok {
			out = append(out, models.Span{Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// isIsolated reports whether line, already trimmed, is one base64 run.
func (f *base64Finder) isIsolated(line string) bool {
	loc := base64RunRe.FindStringIndex(line)
	if loc == nil || loc[0] != 0 || loc[1] != len(line) {
		return false
	}
	_, ok := f.decode(line)
	return ok
}

// decode accepts runs of at least minLen that carry a digit, '+', '/' or
// padding (plain long words do not qualify) and decode cleanly.
func (f *base64Finder) decode(run string) ([]byte, bool) {
	if len(run) < f.minLen || len(run)%4 != 0 {
		return nil, false
	}
	if !strings.ContainsAny(run, "0123456789+/=") {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(run)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Describe decodes the flagged spans of seg for reporting.
func Describe(seg models.Segment) []models.Base64Info {
	out := make([]models.Base64Info, 0, len(seg.Base64))
	for _, sp := range seg.Base64 {
		b, err := base64.StdEncoding.DecodeString(seg.Raw[sp.Start:sp.End])
		if err != nil {
			continue
		}
		out = append(out, models.Base64Info{
			Offset:       seg.Position + sp.Start,
			Length:       sp.End - sp.Start,
			DecodedBytes: len(b),
			MIME:         http.DetectContentType(b),
		})
	}
	return out
}
