package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeArray    FieldType = "array"
	TypeDatetime FieldType = "datetime"
	TypeNull     FieldType = "null"
)

// Schema maps field names to inferred types, keeping first-appearance order.
// It marshals to a JSON object in that order.
type Schema struct {
	fields *orderedmap.OrderedMap[string, FieldType]
}

func NewSchema() *Schema {
	return &Schema{fields: orderedmap.New[string, FieldType]()}
}

func (s *Schema) Set(name string, t FieldType) { s.fields.Set(name, t) }

func (s *Schema) Get(name string) (FieldType, bool) { return s.fields.Get(name) }

func (s *Schema) Len() int { return s.fields.Len() }

func (s *Schema) Keys() []string {
	out := make([]string, 0, s.fields.Len())
	for p := s.fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

func (s *Schema) MarshalJSON() ([]byte, error) { return s.fields.MarshalJSON() }

func (s *Schema) UnmarshalJSON(data []byte) error {
	if s.fields == nil {
		s.fields = orderedmap.New[string, FieldType]()
	}
	return s.fields.UnmarshalJSON(data)
}
