package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"brightedge-go-etl/internal/config"
	"brightedge-go-etl/internal/ioformats"
	"brightedge-go-etl/internal/models"
)

func newTestApp(t *testing.T) (*App, config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		InputDir:  filepath.Join(root, "in"),
		OutputDir: filepath.Join(root, "out"),
		RunScoped: true,
		Settle:    50 * time.Millisecond,
	}
	config.ApplyDefaults(&cfg)
	if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, cfg
}

func writeInput(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProcessDir(t *testing.T) {
	a, cfg := newTestApp(t)
	writeInput(t, cfg.InputDir, "b.txt", `[{"id":1},{"id":2}]`)
	writeInput(t, cfg.InputDir, "a.txt", "<p>hello</p>\n\nsome notes")
	writeInput(t, cfg.InputDir, "empty.txt", "   ")
	writeInput(t, cfg.InputDir, ".hidden", "x")

	outs, err := a.ProcessDir(context.Background(), cfg.InputDir)
	if err != nil {
		t.Fatalf("process dir: %v", err)
	}
	if len(outs) != 3 {
		t.Fatalf("want 3 outcomes, got %d", len(outs))
	}
	if filepath.Base(outs[0].Source) != "a.txt" || outs[0].Err != nil {
		t.Fatalf("unexpected first outcome: %v", outs[0])
	}
	if outs[1].Result.Metadata.TotalItems != 2 {
		t.Fatalf("b.txt items = %d", outs[1].Result.Metadata.TotalItems)
	}
	if !errors.Is(outs[2].Err, models.ErrEmptyInput) {
		t.Fatalf("empty.txt err = %v", outs[2].Err)
	}
	if _, err := os.Stat(outs[0].Paths.CSV); err != nil {
		t.Fatalf("csv missing: %v", err)
	}

	desc, err := a.DescribeOutputs(context.Background())
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !strings.Contains(desc, "cleaned_output.csv") || !strings.Contains(desc, "Recent runs") {
		t.Fatalf("unexpected description:\n%s", desc)
	}
}

func TestProcessNamedRejectsPaths(t *testing.T) {
	a, cfg := newTestApp(t)
	writeInput(t, cfg.InputDir, "one.txt", "plain text")
	if _, err := a.ProcessNamed(context.Background(), "../one.txt"); err == nil {
		t.Fatal("expected error for path traversal")
	}
	msg, err := a.ProcessNamed(context.Background(), "one.txt")
	if err != nil || !strings.Contains(msg, "text=1") {
		t.Fatalf("process named: %q %v", msg, err)
	}
}

func TestProcessInputMissing(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := a.ProcessInput(context.Background(), "/definitely/not/here"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestProcessURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","count":3}`))
	}))
	defer ts.Close()

	a, _ := newTestApp(t)
	outs, err := a.ProcessInput(context.Background(), ts.URL+"/feeds/status.json")
	if err != nil {
		t.Fatalf("process url: %v", err)
	}
	if outs[0].Result.Metadata.Filename != "status.json" {
		t.Fatalf("filename = %q", outs[0].Result.Metadata.Filename)
	}
	if typ, _ := outs[0].Result.Schema.Get("count"); typ != models.TypeNumber {
		t.Fatalf("count type = %s", typ)
	}
}

func TestProcessURLList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
		case "/b.txt":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("first note\n\nsecond note"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	a, _ := newTestApp(t)
	list := writeInput(t, t.TempDir(), "urls.ndjson",
		`{"url":"`+ts.URL+`/a.json"}`+"\n"+ts.URL+"/b.txt\n"+ts.URL+"/missing\n")
	urls, err := ioformats.ReadURLs(list)
	if err != nil {
		t.Fatalf("read urls: %v", err)
	}
	outs := a.ProcessURLs(context.Background(), urls)
	if len(outs) != 3 {
		t.Fatalf("want 3 outcomes, got %d", len(outs))
	}
	if outs[0].Err != nil || outs[0].Result.Metadata.ItemsByType[models.ContentJSON] != 2 {
		t.Fatalf("a.json outcome = %v", outs[0])
	}
	if outs[1].Err != nil || outs[1].Result.Metadata.ItemsByType[models.ContentText] != 2 {
		t.Fatalf("b.txt outcome = %v", outs[1])
	}
	if outs[0].Paths.Dir == outs[1].Paths.Dir {
		t.Fatalf("run-scoped outputs share %s", outs[0].Paths.Dir)
	}
	if outs[2].Err == nil {
		t.Fatal("missing url should fail")
	}
}

func TestWatch(t *testing.T) {
	a, cfg := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeInput(t, cfg.InputDir, "dropped.txt", `{"k":"v"}`)

	deadline := time.Now().Add(5 * time.Second)
	for {
		md, _, err := ioformats.LatestMetadata(cfg.OutputDir)
		if err == nil && md.Filename == "dropped.txt" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watched file was not processed")
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}
