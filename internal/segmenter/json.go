package segmenter

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type span struct{ Start, End int }

// findJSON returns the non-overlapping JSON object/array spans of text, left
// to right. A candidate is bracket-matched first (string aware), then accepted
// only if the whole span passes a full JSON validation.
func (s *Segmenter) findJSON(text string) []span {
	var out []span
	attempts := 0
	// scanned bounds the total bytes walked by bracket matching so nested
	// bracket soup cannot go quadratic.
	budget := 64*len(text) + 1<<20
	scanned := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '{' && c != '[' {
			continue
		}
		if !plausibleStart(text, i) {
			continue
		}
		if attempts >= s.opts.MaxJSONAttempts || scanned >= budget {
			log.Debug().Int("attempts", attempts).Int("offset", i).Msg("json trial parse cap reached")
			break
		}
		attempts++
		end, walked, ok := matchBrackets(text, i)
		scanned += walked
		if !ok {
			continue
		}
		if ValidJSON(text[i:end]) {
			out = append(out, span{Start: i, End: end})
			i = end - 1
		}
	}
	return out
}

// ValidJSON reports whether raw is, in full, a legal JSON object or array.
func ValidJSON(raw string) bool {
	if len(raw) < 2 || (raw[0] != '{' && raw[0] != '[') {
		return false
	}
	return json.Valid([]byte(raw))
}

// plausibleStart rejects brackets whose next significant byte cannot begin
// a JSON member or element, which filters most prose like "[see above]".
func plausibleStart(text string, i int) bool {
	j := i + 1
	for j < len(text) && isSpace(text[j]) {
		j++
	}
	if j >= len(text) {
		return false
	}
	n := text[j]
	if text[i] == '{' {
		return n == '"' || n == '}'
	}
	switch {
	case n == ']', n == '{', n == '[', n == '"', n == '-', n == 't', n == 'f', n == 'n':
		return true
	case n >= '0' && n <= '9':
		return true
	}
	return false
}

// matchBrackets finds the end (exclusive) of the bracketed value starting at
// i, honouring JSON string escapes. It fails on a mismatched closer or EOF.
func matchBrackets(text string, i int) (end, walked int, ok bool) {
	stack := make([]byte, 0, 16)
	inString := false
	escaped := false
	for k := i; k < len(text); k++ {
		c := text[k]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, k - i + 1, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return k + 1, k - i + 1, true
			}
		}
	}
	return 0, len(text) - i, false
}
