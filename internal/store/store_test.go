package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"brightedge-go-etl/internal/models"
)

func testResult(runID string, start time.Time) models.Result {
	sch := models.NewSchema()
	sch.Set("type", models.TypeString)
	sch.Set("source_index", models.TypeString)
	sch.Set("total_items", models.TypeNumber)
	sch.Set("id", models.TypeNumber)

	var rows []*models.Row
	for i, id := range []string{"1", "2"} {
		r := models.NewFields()
		r.Set("type", "json")
		r.Set("source_index", models.SourceIndex(models.ContentJSON, i))
		r.Set("total_items", 2)
		r.Set("id", json.Number(id))
		rows = append(rows, r)
	}
	return models.Result{
		Table:  models.Table{Columns: sch.Keys(), Rows: rows},
		Schema: sch,
		Metadata: models.RunMetadata{
			RunID:       runID,
			StartTime:   start,
			EndTime:     start.Add(50 * time.Millisecond),
			Filename:    "people.json",
			TotalItems:  2,
			ItemsByType: map[models.ContentType]int{models.ContentJSON: 2},
		},
	}
}

func TestSaveAndQuery(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "etl.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if err := s.SaveRun(ctx, testResult("run-a", t0)); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := s.SaveRun(ctx, testResult("run-b", t0.Add(time.Hour))); err != nil {
		t.Fatalf("save b: %v", err)
	}

	runs, err := s.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-b" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[1].ItemsByType[models.ContentJSON] != 2 || !runs[1].StartedAt.Equal(t0) {
		t.Fatalf("run a decoded wrong: %+v", runs[1])
	}

	rows, err := s.Rows(ctx, "run-a")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 || rows[1].SourceIndex != "json_1" || rows[1].DataType != "json" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if string(rows[0].Data) != `{"type":"json","source_index":"json_0","total_items":2,"id":1}` {
		t.Fatalf("row json = %s", rows[0].Data)
	}

	sch, err := s.Schema(ctx, "run-a")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !reflect.DeepEqual(sch.Keys(), []string{"type", "source_index", "total_items", "id"}) {
		t.Fatalf("schema keys = %v", sch.Keys())
	}
}

func TestSaveDuplicateRunRollsBack(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "etl.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	res := testResult("dup", time.Now())
	if err := s.SaveRun(ctx, res); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveRun(ctx, res); err == nil {
		t.Fatal("expected duplicate run error")
	}
	rows, _ := s.Rows(ctx, "dup")
	if len(rows) != 2 {
		t.Fatalf("rollback left %d rows", len(rows))
	}
}

func TestSchemaMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "etl.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.Schema(context.Background(), "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
