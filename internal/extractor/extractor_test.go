package extractor

import (
	"encoding/json"
	"reflect"
	"testing"

	"brightedge-go-etl/internal/models"
)

func keys(f *models.Fields) []string {
	var out []string
	for p := f.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

func TestJSONArrayFanOut(t *testing.T) {
	seg := models.Segment{Type: models.ContentJSON, Raw: `[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]`}
	out, err := JSON{}.Extract(seg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 records, got %d", len(out))
	}
	if got := keys(out[1]); !reflect.DeepEqual(got, []string{"id", "name"}) {
		t.Fatalf("keys = %v", got)
	}
	if v, _ := out[1].Get("id"); v != json.Number("2") {
		t.Fatalf("id = %#v", v)
	}
}

func TestJSONKeyOrderAndNesting(t *testing.T) {
	seg := models.Segment{Type: models.ContentJSON, Raw: `{"z":true,"a":null,"tags":["x","y"],"meta":{"k":1},"n":-1.5e3}`}
	out, err := JSON{}.Extract(seg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := keys(out[0]); !reflect.DeepEqual(got, []string{"z", "a", "tags", "meta", "n"}) {
		t.Fatalf("key order lost: %v", got)
	}
	tags, _ := out[0].Get("tags")
	if raw, ok := tags.(json.RawMessage); !ok || string(raw) != `["x","y"]` {
		t.Fatalf("tags = %#v", tags)
	}
	meta, _ := out[0].Get("meta")
	if raw, ok := meta.(json.RawMessage); !ok || string(raw) != `{"k":1}` {
		t.Fatalf("meta = %#v", meta)
	}
	if v, _ := out[0].Get("a"); v != nil {
		t.Fatalf("a = %#v", v)
	}
	if v, _ := out[0].Get("n"); v != json.Number("-1.5e3") {
		t.Fatalf("n = %#v", v)
	}
}

func TestJSONScalarElementsWrapped(t *testing.T) {
	out, err := JSON{}.Extract(models.Segment{Type: models.ContentJSON, Raw: `[1, "two", [3]]`})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("want 3 records, got %d", len(out))
	}
	if v, _ := out[1].Get(ValueField); v != "two" {
		t.Fatalf("value = %#v", v)
	}
}

func TestJSONRejectsTrailingData(t *testing.T) {
	if _, err := (JSON{}).Extract(models.Segment{Raw: `{"a":1} {"b":2}`}); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestTextParagraphs(t *testing.T) {
	seg := models.Segment{Type: models.ContentText, Raw: "first line\nstill first\n\n  \t\nsecond\r\n\r\nthird"}
	out, err := Text{}.Extract(seg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("want 3 paragraphs, got %d", len(out))
	}
	for _, f := range out {
		if f.Len() != 0 {
			t.Fatalf("text records carry no extracted fields, got %v", keys(f))
		}
	}
}

func TestHTMLOpaque(t *testing.T) {
	out, _ := HTML{}.Extract(models.Segment{Type: models.ContentHTML, Raw: `<html><h1>Hi</h1></html>`})
	if len(out) != 1 || out[0].Len() != 0 {
		t.Fatalf("want one empty record, got %d", len(out))
	}
}

type panicky struct{}

func (panicky) Type() models.ContentType { return models.ContentJSON }
func (panicky) Extract(models.Segment) ([]*models.Fields, error) {
	panic("boom")
}

func TestRegistryDemotesOnFailure(t *testing.T) {
	r := Default()
	r.Register(panicky{})
	out, ct, demoted := r.Extract(models.Segment{Type: models.ContentJSON, Raw: "{\"a\":1}\n\nmore"})
	if !demoted || ct != models.ContentText {
		t.Fatalf("want demotion to text, got %s demoted=%v", ct, demoted)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 text records, got %d", len(out))
	}
}

func TestRegistryPassesThrough(t *testing.T) {
	out, ct, demoted := Default().Extract(models.Segment{Type: models.ContentJSON, Raw: `{"a":1}`})
	if demoted || ct != models.ContentJSON || len(out) != 1 {
		t.Fatalf("unexpected: %d %s %v", len(out), ct, demoted)
	}
}
