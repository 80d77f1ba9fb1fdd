package models

import "fmt"

// NewRecord builds a record whose injected fields precede the extracted ones.
// Extracted keys that collide with an injected field are dropped.
func NewRecord(ct ContentType, seq, total int, extracted *Fields) Record {
	f := NewFields()
	f.Set(FieldTypeKey, string(ct))
	f.Set(FieldSourceIndex, SourceIndex(ct, seq))
	f.Set(FieldTotalItems, total)
	if extracted != nil {
		for p := extracted.Oldest(); p != nil; p = p.Next() {
			if isInjected(p.Key) {
				continue
			}
			f.Set(p.Key, p.Value)
		}
	}
	return Record{Type: ct, Fields: f}
}

func SourceIndex(ct ContentType, seq int) string {
	return fmt.Sprintf("%s_%d", ct, seq)
}

func (r Record) Get(name string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	return r.Fields.Get(name)
}

// Keys returns field names in insertion order.
func (r Record) Keys() []string {
	if r.Fields == nil {
		return nil
	}
	out := make([]string, 0, r.Fields.Len())
	for p := r.Fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

func isInjected(key string) bool {
	return key == FieldTypeKey || key == FieldSourceIndex || key == FieldTotalItems
}
