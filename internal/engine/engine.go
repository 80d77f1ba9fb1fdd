// Package engine runs one ETL pass: segment, extract, infer the schema and
// normalize into a table. A run holds no shared mutable state, so one Engine
// may serve concurrent runs.
package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brightedge-go-etl/internal/extractor"
	"brightedge-go-etl/internal/models"
	"brightedge-go-etl/internal/normalize"
	"brightedge-go-etl/internal/reader"
	"brightedge-go-etl/internal/schema"
	"brightedge-go-etl/internal/segmenter"
)

type Options struct {
	Base64MinLen    int
	MaxJSONAttempts int
	// MaxBytes caps RunFile inputs; zero means unlimited.
	MaxBytes int64
	// Summaries fills Result.Segments. Leave it off unless the segment
	// report is written.
	Summaries bool
}

type Engine struct {
	seg      *segmenter.Segmenter
	ex       *extractor.Registry
	inferer  *schema.Inferencer
	reader   *reader.Reader
	reporter *reporter
	now      func() time.Time
}

func New(opts Options) *Engine {
	e := &Engine{
		seg:     segmenter.New(segmenter.Options{Base64MinLen: opts.Base64MinLen, MaxJSONAttempts: opts.MaxJSONAttempts}),
		ex:      extractor.Default(),
		inferer: schema.New(),
		reader:  reader.New(reader.Options{MaxBytes: opts.MaxBytes}),
		now:     time.Now,
	}
	if opts.Summaries {
		e.reporter = newReporter()
	}
	return e
}

// RunFile reads and decodes path, then runs it. The metadata filename is the
// base name of path.
func (e *Engine) RunFile(path string) (models.Result, error) {
	text, err := e.reader.ReadFile(path)
	if err != nil {
		return models.Result{}, err
	}
	return e.Run(text, filepath.Base(path))
}

// RunBytes decodes an in-memory payload (uploads, fetched pages) and runs it.
func (e *Engine) RunBytes(data []byte, contentType, filename string) (models.Result, error) {
	text, err := reader.Decode(data, contentType)
	if err != nil {
		return models.Result{}, fmt.Errorf("decode %s: %w", filename, err)
	}
	return e.Run(text, filename)
}

// extraction is one segment's records before injected fields are known.
type extraction struct {
	ct      models.ContentType
	fields  []*models.Fields
	demoted bool
}

// Run processes text. It fails only when text is empty or whitespace.
func (e *Engine) Run(text, filename string) (models.Result, error) {
	start := e.now()
	if strings.TrimSpace(text) == "" {
		return models.Result{}, fmt.Errorf("run %s: %w", filename, models.ErrEmptyInput)
	}

	segs := e.seg.Segment(text)

	exts := make([]extraction, len(segs))
	totals := map[models.ContentType]int{}
	demoted := 0
	for i, s := range segs {
		fields, ct, dem := e.ex.Extract(s)
		exts[i] = extraction{ct: ct, fields: fields, demoted: dem}
		totals[ct] += len(fields)
		if dem {
			demoted++
		}
	}

	seq := map[models.ContentType]int{}
	records := make([]models.Record, 0, len(segs))
	for _, x := range exts {
		for _, f := range x.fields {
			records = append(records, models.NewRecord(x.ct, seq[x.ct], totals[x.ct], f))
			seq[x.ct]++
		}
	}

	sch := e.inferer.Infer(records)
	table := normalize.Table(sch, records)

	var summaries []models.SegmentSummary
	if e.reporter != nil {
		summaries = make([]models.SegmentSummary, len(segs))
	}
	b64 := 0
	for i, s := range segs {
		if e.reporter != nil {
			summaries[i] = e.reporter.summarize(i, s, exts[i])
		}
		b64 += len(s.Base64)
	}

	end := e.now()
	meta := models.RunMetadata{
		RunID:           uuid.NewString(),
		StartTime:       start,
		EndTime:         end,
		Filename:        filename,
		TotalItems:      len(records),
		ItemsByType:     totals,
		DurationSeconds: end.Sub(start).Seconds(),
		DemotedCount:    demoted,
		Base64Spans:     b64,
	}

	log.Debug().
		Str("run_id", meta.RunID).
		Str("filename", filename).
		Int("segments", len(segs)).
		Int("records", len(records)).
		Int("demoted", demoted).
		Msg("run complete")

	return models.Result{Table: table, Schema: sch, Metadata: meta, Segments: summaries}, nil
}
