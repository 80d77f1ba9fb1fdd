package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherHandlesSettledFiles(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	seen := map[string]int{}
	got := make(chan string, 8)

	w := &Watcher{
		Dir:         dir,
		Settle:      100 * time.Millisecond,
		Concurrency: 2,
		Handle: func(ctx context.Context, path string) error {
			mu.Lock()
			seen[filepath.Base(path)]++
			mu.Unlock()
			got <- filepath.Base(path)
			if filepath.Base(path) == "bad.txt" {
				return errors.New("boom")
			}
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond) // let the watcher register

	f, err := os.Create(filepath.Join(dir, "input.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_, _ = f.WriteString("chunk\n")
		time.Sleep(20 * time.Millisecond)
	}
	f.Close()
	_ = os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("x"), 0o644)

	want := map[string]bool{"input.txt": true, "bad.txt": true}
	deadline := time.After(5 * time.Second)
	for len(want) > 0 {
		select {
		case name := <-got:
			delete(want, name)
		case <-deadline:
			t.Fatalf("timed out waiting for %v", want)
		}
	}
	time.Sleep(300 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen["input.txt"] != 1 {
		t.Fatalf("input.txt handled %d times", seen["input.txt"])
	}
	if seen[".hidden"] != 0 {
		t.Fatal("dotfile should be skipped")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := &Watcher{Dir: filepath.Join(t.TempDir(), "absent"), Handle: func(context.Context, string) error { return nil }}
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
