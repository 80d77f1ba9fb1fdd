// Package extractor turns segments into flat records, one extractor per
// content type.
package extractor

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"brightedge-go-etl/internal/models"
)

// Extractor returns the extracted fields of each record a segment yields.
// The engine adds the injected fields.
type Extractor interface {
	Type() models.ContentType
	Extract(seg models.Segment) ([]*models.Fields, error)
}

type Registry struct {
	byType map[models.ContentType]Extractor
	text   Extractor
}

// Default registers the json, html and text extractors.
func Default() *Registry {
	r := &Registry{byType: map[models.ContentType]Extractor{}, text: Text{}}
	r.Register(JSON{})
	r.Register(HTML{})
	r.Register(Text{})
	return r
}

func (r *Registry) Register(e Extractor) { r.byType[e.Type()] = e }

// Extract runs the segment's extractor. If it fails or panics the segment is
// re-read as text and demoted reports true; the returned type is the one the
// records should carry.
func (r *Registry) Extract(seg models.Segment) (fields []*models.Fields, ct models.ContentType, demoted bool) {
	e, ok := r.byType[seg.Type]
	if !ok {
		e = r.text
		demoted = seg.Type != models.ContentText
	}
	out, err := safeExtract(e, seg)
	if err == nil {
		return out, e.Type(), demoted
	}
	log.Warn().Err(err).Str("type", string(seg.Type)).Int("position", seg.Position).Msg("extractor failed, demoting segment to text")
	out, err = safeExtract(r.text, seg)
	if err != nil {
		// Text extraction cannot fail on a string; keep the segment as one record.
		out = []*models.Fields{models.NewFields()}
	}
	return out, models.ContentText, true
}

func safeExtract(e Extractor, seg models.Segment) (out []*models.Fields, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("extract %s segment at %d: panic: %v", e.Type(), seg.Position, p)
		}
	}()
	return e.Extract(seg)
}
