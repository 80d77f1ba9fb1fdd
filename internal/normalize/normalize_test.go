package normalize

import (
	"encoding/json"
	"testing"

	"brightedge-go-etl/internal/models"
	"brightedge-go-etl/internal/schema"
)

func TestTableNullFill(t *testing.T) {
	a := models.NewFields()
	a.Set("id", json.Number("1"))
	a.Set("name", "Alice")
	b := models.NewFields()
	b.Set("id", json.Number("2"))
	b.Set("email", "bob@example.com")
	recs := []models.Record{
		models.NewRecord(models.ContentJSON, 0, 2, a),
		models.NewRecord(models.ContentJSON, 1, 2, b),
		models.NewRecord(models.ContentHTML, 0, 1, nil),
	}
	s := schema.New().Infer(recs)
	tbl := Table(s, recs)

	if tbl.Len() != 3 {
		t.Fatalf("want 3 rows, got %d", tbl.Len())
	}
	for i, row := range tbl.Rows {
		if row.Len() != s.Len() {
			t.Fatalf("row %d has %d keys, schema has %d", i, row.Len(), s.Len())
		}
		p := row.Oldest()
		for _, c := range tbl.Columns {
			if p == nil || p.Key != c {
				t.Fatalf("row %d column order differs at %s", i, c)
			}
			p = p.Next()
		}
	}
	if v, _ := tbl.Rows[0].Get("email"); v != nil {
		t.Fatalf("want nil email in row 0, got %#v", v)
	}
	if v, _ := tbl.Rows[2].Get("id"); v != nil {
		t.Fatalf("want nil id for html row, got %#v", v)
	}
	if v, _ := tbl.Rows[1].Get("email"); v != "bob@example.com" {
		t.Fatalf("email not carried: %#v", v)
	}
	vals := tbl.Values(2)
	if vals[0] != "html" || vals[1] != "html_0" {
		t.Fatalf("unexpected injected values: %#v", vals)
	}
}
