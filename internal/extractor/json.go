package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"brightedge-go-etl/internal/models"
)

// ValueField holds non-object array elements.
const ValueField = "value"

type JSON struct{}

func (JSON) Type() models.ContentType { return models.ContentJSON }

// Extract fans an array out to one record per element and maps an object to
// one record. Key order is preserved; nested arrays and objects are kept
// verbatim as json.RawMessage.
func (JSON) Extract(seg models.Segment) ([]*models.Fields, error) {
	dec := json.NewDecoder(strings.NewReader(seg.Raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json segment: %w", err)
	}
	var out []*models.Fields
	switch tok {
	case json.Delim('{'):
		f, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	case json.Delim('['):
		for dec.More() {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("json element: %w", err)
			}
			f, err := element(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("json array end: %w", err)
		}
	default:
		return nil, fmt.Errorf("json segment starts with %v, want object or array", tok)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("json segment: trailing data")
	}
	return out, nil
}

func element(raw json.RawMessage) (*models.Fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return readObject(dec)
	}
	v, err := scalar(raw)
	if err != nil {
		return nil, err
	}
	f := models.NewFields()
	f.Set(ValueField, v)
	return f, nil
}

// readObject reads members after the opening brace through the closing one.
func readObject(dec *json.Decoder) (*models.Fields, error) {
	f := models.NewFields()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("json key: unexpected %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("json value for %q: %w", key, err)
		}
		v, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("json value for %q: %w", key, err)
		}
		f.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("json object end: %w", err)
	}
	return f, nil
}

// scalar maps a raw JSON value to string, json.Number, bool or nil. Arrays
// and objects stay raw.
func scalar(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}
	switch raw[0] {
	case '{', '[':
		return append(json.RawMessage(nil), raw...), nil
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case 't', 'f':
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	case 'n':
		return nil, nil
	}
	return json.Number(raw), nil
}
