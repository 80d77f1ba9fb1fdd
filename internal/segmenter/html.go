package segmenter

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// recognized lists the elements that may open an HTML segment.
var recognized = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Body: true, atom.Title: true, atom.Meta: true,
	atom.Link: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Div: true, atom.Span: true, atom.P: true, atom.A: true, atom.Img: true,
	atom.Br: true, atom.Hr: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Ul: true, atom.Ol: true,
	atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Table: true,
	atom.Thead: true, atom.Tbody: true, atom.Tfoot: true, atom.Tr: true, atom.Td: true,
	atom.Th: true, atom.Section: true, atom.Article: true, atom.Header: true,
	atom.Footer: true, atom.Nav: true, atom.Main: true, atom.Aside: true,
	atom.Form: true, atom.Input: true, atom.Button: true, atom.Label: true,
	atom.Select: true, atom.Option: true, atom.Textarea: true, atom.Strong: true,
	atom.Em: true, atom.B: true, atom.I: true, atom.U: true, atom.Small: true,
	atom.Pre: true, atom.Code: true, atom.Blockquote: true, atom.Figure: true,
	atom.Figcaption: true, atom.Iframe: true, atom.Svg: true, atom.Video: true,
	atom.Audio: true, atom.Source: true,
}

var void = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true, atom.Embed: true,
	atom.Hr: true, atom.Img: true, atom.Input: true, atom.Link: true, atom.Meta: true,
	atom.Source: true, atom.Track: true, atom.Wbr: true,
}

// htmlSpan reports whether a recognized opening tag (or an html doctype)
// starts at text[start], and if so where its element ends within [start,hi).
// Nesting of the same tag is balanced; an unterminated element runs to hi.
func htmlSpan(text string, start, hi int) (int, bool) {
	src := text[start:hi]
	if len(src) < 3 || src[0] != '<' {
		return 0, false
	}
	if c := src[1]; !isLetter(c) && c != '!' {
		return 0, false
	}

	z := html.NewTokenizer(strings.NewReader(src))
	tt := z.Next()
	consumed := len(z.Raw())

	var target atom.Atom
	depth := 1
	switch tt {
	case html.DoctypeToken:
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(string(z.Text()))), "html") {
			return 0, false
		}
		// The doctype closes with </html>; the <html> start tag opens depth 1.
		target, depth = atom.Html, 0
	case html.StartTagToken, html.SelfClosingTagToken:
		name, _ := z.TagName()
		target = atom.Lookup(name)
		if !recognized[target] {
			return 0, false
		}
		if tt == html.SelfClosingTagToken || void[target] {
			return start + consumed, true
		}
	default:
		return 0, false
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return hi, true
		}
		consumed += len(z.Raw())
		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == target {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == target {
				depth--
				if depth <= 0 {
					return start + consumed, true
				}
			}
		}
	}
}

// skipEndTags returns the offset just past a run of end tags of recognized
// elements starting at text[lo] (whitespace between them allowed), or lo when
// there is none.
func skipEndTags(text string, lo, hi int) int {
	end := lo
	for {
		k := skipSpace(text, end, hi)
		if k+2 >= hi || text[k] != '<' || text[k+1] != '/' {
			return end
		}
		gt := strings.IndexByte(text[k:hi], '>')
		if gt < 0 {
			return end
		}
		name := strings.ToLower(strings.TrimSpace(text[k+2 : k+gt]))
		if !recognized[atom.Lookup([]byte(name))] {
			return end
		}
		end = k + gt + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
