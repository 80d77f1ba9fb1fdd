package parser

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleHTML = `<!doctype html><html lang="en"><head>
<title>Test Page</title>
<meta name="description" content="A short description">
<style>body { color: red }</style>
</head><body>
<h1>Hello</h1>
<p>Go is great for <a href="/net">network</a> services.</p>
<script>var ignored = "words words words";</script>
</body></html>`

func TestSummarize(t *testing.T) {
	sum, err := New().Summarize(sampleHTML)
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if sum.Title != "Test Page" {
		t.Fatalf("want title Test Page, got %q", sum.Title)
	}
	if sum.WordCount != 7 {
		t.Fatalf("want 7 words, got %d", sum.WordCount)
	}
	if sum.Links != 1 {
		t.Fatalf("want 1 link, got %d", sum.Links)
	}
	if sum.Language != "en" {
		t.Fatalf("want lang en, got %q", sum.Language)
	}
}

func TestSummarizeFragmentFallsBackToHeading(t *testing.T) {
	sum, err := New().Summarize(`<div><h2>Quarterly report</h2><p>numbers</p></div>`)
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if sum.Title != "Quarterly report" {
		t.Fatalf("want heading title, got %q", sum.Title)
	}
}

func TestSummarizeRejectsDeepNesting(t *testing.T) {
	start := time.Now()
	_, err := New().Summarize(strings.Repeat("<div>", 25000))
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("want ErrTooDeep, got %v", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("deep fragment took %v", d)
	}
}

func TestSummarizeAllowsVoidAndSiblings(t *testing.T) {
	// void tags and closed siblings do not accumulate depth
	frag := "<div>" + strings.Repeat("<p>x<br><img src=a.png></p>\n", MaxDepth*2) + "</div>"
	sum, err := New().Summarize(frag)
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if sum.WordCount != MaxDepth*2 {
		t.Fatalf("want %d words, got %d", MaxDepth*2, sum.WordCount)
	}
}
