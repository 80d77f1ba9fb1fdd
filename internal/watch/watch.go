// Package watch processes files as they land in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Handler processes one settled file. Errors are logged; the loop keeps going.
type Handler func(ctx context.Context, path string) error

type Watcher struct {
	Dir string
	// Settle is how long a file must go without writes before it is handled.
	Settle      time.Duration
	Concurrency int
	Handle      Handler
}

// Run blocks until ctx is canceled, then waits for in-flight handlers.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Handle == nil {
		return errors.New("watch: nil handler")
	}
	settle := w.Settle
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	conc := w.Concurrency
	if conc <= 0 {
		conc = 1
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	log.Info().Str("dir", w.Dir).Dur("settle", settle).Int("concurrency", conc).Msg("watching for files")

	var (
		mu      sync.Mutex
		closed  bool
		pending = map[string]*time.Timer{}
		wg      sync.WaitGroup
		sem     = make(chan struct{}, conc)
	)
	fire := func(path string) {
		info, err := os.Stat(path)
		mu.Lock()
		delete(pending, path)
		if closed || err != nil || !info.Mode().IsRegular() {
			mu.Unlock()
			return
		}
		wg.Add(1)
		mu.Unlock()
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if err := w.Handle(ctx, path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("processing failed")
			}
		}()
	}

	defer func() {
		mu.Lock()
		closed = true
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Reset(settle)
			} else {
				pending[path] = time.AfterFunc(settle, func() { fire(path) })
			}
			mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", w.Dir).Msg("watch error")
		}
	}
}
