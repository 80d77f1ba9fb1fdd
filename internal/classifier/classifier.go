package classifier

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"brightedge-go-etl/internal/models"
)

type Classifier struct{}

func New() *Classifier { return &Classifier{} }

// ISO-8601 calendar date, optionally followed by a time and zone.
var datetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2}(?:[.,]\d+)?)?(?:Z|[+-]\d{2}(?::?\d{2})?)?)?$`)

// Value returns the type tag of a single non-derived field value.
func (c *Classifier) Value(v any) models.FieldType {
	switch x := v.(type) {
	case nil:
		return models.TypeNull
	case bool:
		return models.TypeBoolean
	case json.Number, int, int64, float64:
		return models.TypeNumber
	case json.RawMessage:
		raw := bytes.TrimSpace(x)
		switch {
		case len(raw) == 0, bytes.Equal(raw, []byte("null")):
			return models.TypeNull
		case raw[0] == '[':
			return models.TypeArray
		}
		return models.TypeString
	case []any:
		return models.TypeArray
	case string:
		if IsDatetime(x) {
			return models.TypeDatetime
		}
		return models.TypeString
	}
	return models.TypeString
}

// IsDatetime reports whether s is an ISO-8601 timestamp with a real calendar date.
func IsDatetime(s string) bool {
	if !datetimeRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s[:10])
	return err == nil
}

// simple stopword list (extend as needed)
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "a": {}, "for": {}, "is": {}, "on": {}, "with": {}, "as": {},
	"by": {}, "at": {}, "from": {}, "that": {}, "this": {}, "it": {}, "an": {}, "be": {}, "or": {}, "are": {}, "was": {},
	"will": {}, "has": {}, "have": {}, "had": {}, "but": {}, "not": {}, "your": {}, "you": {}, "we": {}, "our": {},
}

// TopTopics returns top N keywords by frequency, ignoring stopwords and short tokens.
// Used for the text entries of the segment report.
func (c *Classifier) TopTopics(text string, n int) []string {
	freq := map[string]int{}
	token := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) }
	for _, w := range strings.FieldsFunc(strings.ToLower(text), token) {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		freq[w]++
	}

	type kv struct {
		K string
		V int
	}
	list := make([]kv, 0, len(freq))
	for k, v := range freq {
		list = append(list, kv{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].V == list[j].V {
			return list[i].K < list[j].K
		}
		return list[i].V > list[j].V
	})
	if n > len(list) {
		n = len(list)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, list[i].K)
	}
	return out
}
