package ioformats

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"brightedge-go-etl/internal/models"
)

func sampleResult(t *testing.T, filename string) models.Result {
	t.Helper()
	sch := models.NewSchema()
	sch.Set("type", models.TypeString)
	sch.Set("source_index", models.TypeString)
	sch.Set("total_items", models.TypeNumber)
	sch.Set("note", models.TypeString)
	sch.Set("tags", models.TypeArray)

	r1 := models.NewFields()
	r1.Set("type", "json")
	r1.Set("source_index", "json_0")
	r1.Set("total_items", 1)
	r1.Set("note", `said "hi", then left`)
	r1.Set("tags", json.RawMessage(`["a","b"]`))
	r2 := models.NewFields()
	r2.Set("type", "text")
	r2.Set("source_index", "text_0")
	r2.Set("total_items", 1)
	r2.Set("note", nil)
	r2.Set("tags", nil)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return models.Result{
		Table:  models.Table{Columns: sch.Keys(), Rows: []*models.Row{r1, r2}},
		Schema: sch,
		Metadata: models.RunMetadata{
			RunID:       "0f8fad5b-d9cb-469f-a165-70867728950e",
			StartTime:   start,
			EndTime:     start.Add(time.Second),
			Filename:    filename,
			TotalItems:  2,
			ItemsByType: map[models.ContentType]int{models.ContentJSON: 1, models.ContentText: 1},
		},
		Segments: []models.SegmentSummary{{Index: 0, Type: models.ContentJSON}, {Index: 1, Type: models.ContentText}},
	}
}

func TestLoaderSave(t *testing.T) {
	dir := t.TempDir()
	l := &Loader{Dir: dir, SegmentReport: true}
	paths, err := l.Save(context.Background(), sampleResult(t, "in.txt"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	header, rows, err := ReadCSV(paths.CSV)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !reflect.DeepEqual(header, []string{"type", "source_index", "total_items", "note", "tags"}) {
		t.Fatalf("header = %v", header)
	}
	if rows[0][3] != `said "hi", then left` || rows[0][4] != `["a","b"]` {
		t.Fatalf("row 0 = %v", rows[0])
	}
	if rows[1][3] != "" || rows[1][4] != "" {
		t.Fatalf("nulls not empty: %v", rows[1])
	}

	sb, err := os.ReadFile(paths.Schema)
	if err != nil {
		t.Fatal(err)
	}
	if i, j := bytes.Index(sb, []byte(`"total_items"`)), bytes.Index(sb, []byte(`"note"`)); i < 0 || j < i {
		t.Fatalf("schema order lost:\n%s", sb)
	}

	md, err := ReadMetadata(paths.Metadata)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if md.Filename != "in.txt" || md.TotalItems != 2 || md.ItemsByType[models.ContentText] != 1 {
		t.Fatalf("metadata = %+v", md)
	}
	raw, _ := os.ReadFile(paths.Metadata)
	for _, k := range []string{"start_time", "end_time", "filename", "total_items", "items_by_type", "processing_duration_seconds"} {
		if !bytes.Contains(raw, []byte(`"`+k+`"`)) {
			t.Fatalf("metadata missing %s", k)
		}
	}

	seg, err := os.ReadFile(paths.Segments)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(seg), "\n"); n != 2 {
		t.Fatalf("want 2 segment lines, got %d", n)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoaderRunScopedConcurrent(t *testing.T) {
	dir := t.TempDir()
	l := &Loader{Dir: dir, RunScoped: true}
	ids := []string{"11111111-aaaa", "22222222-bbbb", "33333333-cccc", "44444444-dddd"}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		res := sampleResult(t, "report v1.txt")
		res.Metadata.RunID = id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Save(context.Background(), res)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	files, err := ListOutputs(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3*len(ids) {
		t.Fatalf("want %d files, got %d", 3*len(ids), len(files))
	}
	md, path, err := LatestMetadata(dir)
	if err != nil || md.Filename != "report v1.txt" {
		t.Fatalf("latest metadata: %v %+v", err, md)
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(path)), "report_v1_20240501T120000_") {
		t.Fatalf("unexpected run dir %s", path)
	}
}

func TestLoaderSameDirConcurrent(t *testing.T) {
	dir := t.TempDir()
	l := &Loader{Dir: dir}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Save(context.Background(), sampleResult(t, "same.txt")); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, _, err := ReadCSV(filepath.Join(dir, CSVFile)); err != nil {
		t.Fatalf("csv unreadable after concurrent writes: %v", err)
	}
}

func TestLoaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Loader{Dir: t.TempDir()}).Save(ctx, sampleResult(t, "x")); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestListOutputsMissingDir(t *testing.T) {
	files, err := ListOutputs(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(files) != 0 {
		t.Fatalf("want empty, got %v %v", files, err)
	}
}

func TestReadURLs(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "urls.csv")
	_ = os.WriteFile(csvPath, []byte("name,URL\na,https://a.example\nb, \n"), 0o644)
	urls, err := ReadURLs(csvPath)
	if err != nil || !reflect.DeepEqual(urls, []string{"https://a.example"}) {
		t.Fatalf("csv urls = %v %v", urls, err)
	}
	ndPath := filepath.Join(dir, "urls.ndjson")
	_ = os.WriteFile(ndPath, []byte("{\"url\":\"https://b.example\"}\nhttps://c.example\n\n"), 0o644)
	urls, err = ReadURLs(ndPath)
	if err != nil || !reflect.DeepEqual(urls, []string{"https://b.example", "https://c.example"}) {
		t.Fatalf("ndjson urls = %v %v", urls, err)
	}
}

func TestFormatCell(t *testing.T) {
	cases := map[string]any{
		"":        nil,
		"true":    true,
		"3.25":    json.Number("3.25"),
		"7":       7,
		"0.5":     0.5,
		`{"k":1}`: json.RawMessage(`{"k":1}`),
	}
	for want, in := range cases {
		if got := FormatCell(in); got != want {
			t.Errorf("FormatCell(%#v) = %q, want %q", in, got, want)
		}
	}
}
