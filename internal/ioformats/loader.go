package ioformats

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"brightedge-go-etl/internal/models"
)

const (
	CSVFile      = "cleaned_output.csv"
	SchemaFile   = "dynamic_schema.json"
	MetadataFile = "processing_metadata.json"
	SegmentsFile = "segments.ndjson"
)

// Loader writes run outputs into Dir. With RunScoped set each run gets its
// own subdirectory; otherwise every run overwrites the same files.
type Loader struct {
	Dir           string
	RunScoped     bool
	SegmentReport bool
}

type Paths struct {
	Dir      string `json:"dir"`
	CSV      string `json:"csv"`
	Schema   string `json:"schema"`
	Metadata string `json:"metadata"`
	Segments string `json:"segments,omitempty"`
}

// dirLocks serializes writers per destination directory.
var dirLocks sync.Map

func lockDir(dir string) func() {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	v, _ := dirLocks.LoadOrStore(dir, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Save writes the CSV, schema, metadata and optional segment report. Each file
// appears atomically.
func (l *Loader) Save(ctx context.Context, res models.Result) (Paths, error) {
	dir := l.Dir
	if l.RunScoped {
		dir = filepath.Join(dir, RunDirName(res.Metadata))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	unlock := lockDir(dir)
	defer unlock()

	p := Paths{
		Dir:      dir,
		CSV:      filepath.Join(dir, CSVFile),
		Schema:   filepath.Join(dir, SchemaFile),
		Metadata: filepath.Join(dir, MetadataFile),
	}
	if err := writeAtomic(ctx, p.CSV, func(w io.Writer) error { return WriteCSV(w, res.Table) }); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", CSVFile, err)
	}
	if err := writeAtomic(ctx, p.Schema, jsonBody(res.Schema)); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", SchemaFile, err)
	}
	if err := writeAtomic(ctx, p.Metadata, jsonBody(res.Metadata)); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", MetadataFile, err)
	}
	if l.SegmentReport {
		p.Segments = filepath.Join(dir, SegmentsFile)
		items := make([]any, len(res.Segments))
		for i, s := range res.Segments {
			items[i] = s
		}
		if err := writeAtomic(ctx, p.Segments, func(w io.Writer) error { return WriteNDJSON(w, items) }); err != nil {
			return Paths{}, fmt.Errorf("write %s: %w", SegmentsFile, err)
		}
	}

	log.Info().Str("run_id", res.Metadata.RunID).Str("dir", dir).Int("rows", res.Table.Len()).Msg("outputs written")
	return p, nil
}

func jsonBody(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	}
}

var slugRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RunDirName names a run-scoped output directory after the input file, the
// start time and the run id prefix.
func RunDirName(md models.RunMetadata) string {
	name := strings.TrimSuffix(filepath.Base(md.Filename), filepath.Ext(md.Filename))
	name = strings.Trim(slugRe.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		name = "input"
	}
	id := md.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s", name, md.StartTime.UTC().Format("20060102T150405"), id)
}

// writeAtomic writes to a temp file beside dest and renames it into place.
func writeAtomic(ctx context.Context, dest string, body func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if err := body(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
