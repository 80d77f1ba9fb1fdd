package models

import (
	"reflect"
	"testing"
)

func TestNewRecordInjectedFieldsFirst(t *testing.T) {
	ex := NewFields()
	ex.Set("name", "Alice")
	ex.Set(FieldTypeKey, "spoofed")
	ex.Set("id", 7)

	r := NewRecord(ContentJSON, 3, 5, ex)
	want := []string{FieldTypeKey, FieldSourceIndex, FieldTotalItems, "name", "id"}
	if got := r.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if v, _ := r.Get(FieldTypeKey); v != "json" {
		t.Fatalf("type = %#v", v)
	}
	if v, _ := r.Get(FieldSourceIndex); v != "json_3" {
		t.Fatalf("source_index = %#v", v)
	}
	if v, _ := r.Get(FieldTotalItems); v != 5 {
		t.Fatalf("total_items = %#v", v)
	}
}

func TestSchemaTypeTagsKeepOrder(t *testing.T) {
	s := NewSchema()
	s.Set(FieldTypeKey, TypeString)
	s.Set("price", TypeNumber)
	b, err := s.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"string","price":"number"}` {
		t.Fatalf("schema json = %s", b)
	}
}
