// Package segmenter partitions a mixed text blob into ordered, non-overlapping
// segments tagged html, json or text.
//
// Overlaps resolve by priority JSON > HTML > base64 > text: JSON spans are
// claimed first, HTML is searched for in the gaps between them, isolated
// base64 lines are split out of the remaining text, and whatever is left is
// coalesced into text segments. Base64 runs are also flagged inside every
// segment they occur in. End tags left dangling right after a JSON span (the
// closers of an element the JSON cut short) are dropped.
package segmenter

import (
	"strings"

	"github.com/rs/zerolog/log"

	"brightedge-go-etl/internal/models"
)

const (
	DefaultBase64MinLen    = 16
	DefaultMaxJSONAttempts = 10000
)

type Options struct {
	// Base64MinLen is the shortest run flagged as base64.
	Base64MinLen int
	// MaxJSONAttempts caps trial parses per run; once reached, remaining
	// brackets are left to the HTML and text rules.
	MaxJSONAttempts int
}

type Segmenter struct {
	opts Options
	b64  *base64Finder
}

func New(opts Options) *Segmenter {
	if opts.Base64MinLen <= 0 {
		opts.Base64MinLen = DefaultBase64MinLen
	}
	if opts.MaxJSONAttempts <= 0 {
		opts.MaxJSONAttempts = DefaultMaxJSONAttempts
	}
	return &Segmenter{opts: opts, b64: newBase64Finder(opts.Base64MinLen)}
}

// Segment splits text into segments in source order. Identical input always
// yields identical output.
func (s *Segmenter) Segment(text string) []models.Segment {
	jsonSpans := s.findJSON(text)

	var out []models.Segment
	cursor := 0
	for k, js := range jsonSpans {
		out = s.segmentGap(out, text, cursor, js.Start)
		out = append(out, s.newSegment(text, models.ContentJSON, js.Start, js.End))
		next := len(text)
		if k+1 < len(jsonSpans) {
			next = jsonSpans[k+1].Start
		}
		cursor = skipEndTags(text, js.End, next)
	}
	out = s.segmentGap(out, text, cursor, len(text))

	log.Debug().Int("segments", len(out)).Int("json", len(jsonSpans)).Msg("segmented input")
	return out
}

// segmentGap handles a region free of JSON: HTML first, then text.
func (s *Segmenter) segmentGap(out []models.Segment, text string, lo, hi int) []models.Segment {
	textStart := lo
	i := lo
	for i < hi {
		j := strings.IndexByte(text[i:hi], '<')
		if j < 0 {
			break
		}
		i += j
		end, ok := htmlSpan(text, i, hi)
		if !ok {
			i++
			continue
		}
		// Siblings separated only by whitespace (no blank line) join the segment.
		for {
			k := skipSpace(text, end, hi)
			if k >= hi || text[k] != '<' || hasBlankLine(text[end:k]) {
				break
			}
			next, ok := htmlSpan(text, k, hi)
			if !ok {
				break
			}
			end = next
		}
		out = s.textSegments(out, text, textStart, i)
		out = append(out, s.newSegment(text, models.ContentHTML, i, end))
		i = end
		textStart = end
	}
	return s.textSegments(out, text, textStart, hi)
}

// textSegments coalesces [lo,hi) into text segments, splitting out base64
// runs that sit alone on their own line.
func (s *Segmenter) textSegments(out []models.Segment, text string, lo, hi int) []models.Segment {
	start := lo
	pos := lo
	for pos < hi {
		lineEnd := hi
		if nl := strings.IndexByte(text[pos:hi], '\n'); nl >= 0 {
			lineEnd = pos + nl
		}
		if isLineStart(text, pos) && isLineEnd(text, lineEnd) {
			line := text[pos:lineEnd]
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && s.b64.isIsolated(trimmed) {
				out = s.appendText(out, text, start, pos)
				off := pos + strings.Index(line, trimmed)
				out = append(out, s.newSegment(text, models.ContentText, off, off+len(trimmed)))
				start = lineEnd
			}
		}
		pos = lineEnd + 1
	}
	return s.appendText(out, text, start, hi)
}

func (s *Segmenter) appendText(out []models.Segment, text string, lo, hi int) []models.Segment {
	for lo < hi && isSpace(text[lo]) {
		lo++
	}
	for hi > lo && isSpace(text[hi-1]) {
		hi--
	}
	if lo >= hi {
		return out
	}
	return append(out, s.newSegment(text, models.ContentText, lo, hi))
}

func (s *Segmenter) newSegment(text string, ct models.ContentType, lo, hi int) models.Segment {
	raw := text[lo:hi]
	return models.Segment{
		Type:     ct,
		Raw:      raw,
		Position: lo,
		Base64:   s.b64.spans(raw),
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func skipSpace(text string, i, hi int) int {
	for i < hi && isSpace(text[i]) {
		i++
	}
	return i
}

func hasBlankLine(ws string) bool {
	return strings.Count(ws, "\n") >= 2
}

func isLineStart(text string, pos int) bool {
	return pos == 0 || text[pos-1] == '\n'
}

func isLineEnd(text string, pos int) bool {
	return pos >= len(text) || text[pos] == '\n'
}
