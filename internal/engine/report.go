package engine

import (
	"strings"

	"github.com/rs/zerolog/log"

	"brightedge-go-etl/internal/classifier"
	"brightedge-go-etl/internal/models"
	"brightedge-go-etl/internal/parser"
	"brightedge-go-etl/internal/segmenter"
)

const (
	titleChars = 50
	topicCount = 5
)

// reporter builds the per-segment summaries written to the segment report.
type reporter struct {
	par *parser.Parser
	cl  *classifier.Classifier
}

func newReporter() *reporter {
	return &reporter{par: parser.New(), cl: classifier.New()}
}

func (r *reporter) summarize(i int, s models.Segment, x extraction) models.SegmentSummary {
	sum := models.SegmentSummary{
		Index:    i,
		Type:     x.ct,
		Position: s.Position,
		Length:   len(s.Raw),
		Records:  len(x.fields),
		Demoted:  x.demoted,
	}
	if b := segmenter.Describe(s); len(b) > 0 {
		sum.Base64 = b
	}

	switch x.ct {
	case models.ContentHTML:
		h, err := r.par.Summarize(s.Raw)
		if err != nil {
			log.Debug().Err(err).Int("segment", i).Msg("html summary failed")
			break
		}
		sum.Title = h.Title
		sum.WordCount = h.WordCount
		sum.Links = h.Links
		sum.Language = h.Language
	case models.ContentText:
		sum.Title = firstChars(s.Raw, titleChars)
		sum.WordCount = len(strings.Fields(s.Raw))
		sum.Topics = r.cl.TopTopics(s.Raw, topicCount)
	}
	return sum
}

// firstChars returns the first n runes of s's first line.
func firstChars(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
