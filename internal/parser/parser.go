package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"brightedge-go-etl/internal/models"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

var whitespaceRe = regexp.MustCompile(`\s+`)

// MaxDepth bounds element nesting accepted by Summarize. Tree construction
// cost grows with depth times size, so deeper fragments are refused.
const MaxDepth = 256

var ErrTooDeep = errors.New("html nested too deeply")

var void = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true, atom.Embed: true,
	atom.Hr: true, atom.Img: true, atom.Input: true, atom.Link: true, atom.Meta: true,
	atom.Source: true, atom.Track: true, atom.Wbr: true,
}

// depthExceeds reports whether open elements in fragment ever nest deeper
// than limit. It stops at the first violation.
func depthExceeds(fragment string, limit int) bool {
	z := html.NewTokenizer(strings.NewReader(fragment))
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken:
			name, _ := z.TagName()
			if void[atom.Lookup(name)] {
				continue
			}
			depth++
			if depth > limit {
				return true
			}
		case html.EndTagToken:
			if depth > 0 {
				depth--
			}
		}
	}
}

// Summarize describes an HTML segment for the segment report. The fragment
// never contributes fields to the table.
func (p *Parser) Summarize(fragment string) (models.HTMLSummary, error) {
	if depthExceeds(fragment, MaxDepth) {
		return models.HTMLSummary{}, fmt.Errorf("summarize: %w (limit %d)", ErrTooDeep, MaxDepth)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return models.HTMLSummary{}, err
	}

	// Remove script & style
	doc.Find("script,noscript,style").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1,h2,h3").First().Text())
	}

	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.Find("body").Text(), " "))
	wordCount := 0
	if text != "" {
		wordCount = len(strings.Fields(text))
	}

	// language from <html lang> or og:locale
	lang := strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))
	if lang == "" {
		lang = strings.TrimSpace(doc.Find(`meta[property="og:locale"]`).AttrOr("content", ""))
	}

	return models.HTMLSummary{
		Title:     title,
		WordCount: wordCount,
		Links:     doc.Find("a[href]").Length(),
		Language:  lang,
	}, nil
}
