package models

import (
	"errors"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type ContentType string

const (
	ContentHTML ContentType = "html"
	ContentJSON ContentType = "json"
	ContentText ContentType = "text"
)

// Engine-injected record fields, always placed first.
const (
	FieldTypeKey     = "type"
	FieldSourceIndex = "source_index"
	FieldTotalItems  = "total_items"
)

var (
	ErrNotFound   = errors.New("input not found")
	ErrUnreadable = errors.New("input unreadable")
	ErrEmptyInput = errors.New("empty input")
	ErrTooLarge   = errors.New("input too large")
)

// Span is a half-open byte range relative to the enclosing segment.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Segment struct {
	Type     ContentType
	Raw      string
	Position int
	Base64   []Span
}

func (s Segment) End() int { return s.Position + len(s.Raw) }

// Fields is an insertion-ordered field mapping. Values are string, json.Number,
// bool, nil, int, or json.RawMessage for nested arrays and objects.
type Fields = orderedmap.OrderedMap[string, any]

func NewFields() *Fields { return orderedmap.New[string, any]() }

type Record struct {
	Type   ContentType
	Fields *Fields
}

// Row maps every schema column, in schema order, to a cell value. Nil is the null marker.
type Row = orderedmap.OrderedMap[string, any]

type Table struct {
	Columns []string `json:"columns"`
	Rows    []*Row   `json:"rows"`
}

func (t Table) Len() int { return len(t.Rows) }

// Values returns row i in column order.
func (t Table) Values(i int) []any {
	out := make([]any, len(t.Columns))
	for c, name := range t.Columns {
		out[c], _ = t.Rows[i].Get(name)
	}
	return out
}

type HTMLSummary struct {
	Title     string `json:"title,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Links     int    `json:"links,omitempty"`
	Language  string `json:"language,omitempty"`
}

type Base64Info struct {
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	DecodedBytes int    `json:"decoded_bytes"`
	MIME         string `json:"mime"`
}

// SegmentSummary describes one segment for the segment report.
type SegmentSummary struct {
	Index     int          `json:"index"`
	Type      ContentType  `json:"type"`
	Position  int          `json:"position"`
	Length    int          `json:"length"`
	Records   int          `json:"records"`
	Demoted   bool         `json:"demoted,omitempty"`
	Title     string       `json:"title,omitempty"`
	WordCount int          `json:"word_count,omitempty"`
	Links     int          `json:"links,omitempty"`
	Language  string       `json:"language,omitempty"`
	Topics    []string     `json:"topics,omitempty"`
	Base64    []Base64Info `json:"base64,omitempty"`
}

type RunMetadata struct {
	RunID           string              `json:"run_id"`
	StartTime       time.Time           `json:"start_time"`
	EndTime         time.Time           `json:"end_time"`
	Filename        string              `json:"filename"`
	TotalItems      int                 `json:"total_items"`
	ItemsByType     map[ContentType]int `json:"items_by_type"`
	DurationSeconds float64             `json:"processing_duration_seconds"`
	DemotedCount    int                 `json:"demoted_count"`
	Base64Spans     int                 `json:"base64_spans"`
}

// Result is everything one engine run produces.
type Result struct {
	Table    Table
	Schema   *Schema
	Metadata RunMetadata
	Segments []SegmentSummary
}
