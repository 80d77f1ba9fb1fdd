// Package app wires the engine to its hosts: output files, the run store,
// remote fetching and the watch loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"brightedge-go-etl/internal/config"
	"brightedge-go-etl/internal/engine"
	"brightedge-go-etl/internal/fetch"
	"brightedge-go-etl/internal/ioformats"
	"brightedge-go-etl/internal/models"
	"brightedge-go-etl/internal/store"
	"brightedge-go-etl/internal/watch"
)

type App struct {
	cfg    config.Config
	engine *engine.Engine
	loader *ioformats.Loader
	store  *store.Store
	client *fetch.HTTPClient
}

// Outcome is the result of processing one input.
type Outcome struct {
	Source string          `json:"source"`
	Result models.Result   `json:"-"`
	Paths  ioformats.Paths `json:"paths"`
	Err    error           `json:"-"`
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: error: %v", o.Source, o.Err)
	}
	md := o.Result.Metadata
	types := make([]string, 0, len(md.ItemsByType))
	for ct, n := range md.ItemsByType {
		types = append(types, fmt.Sprintf("%s=%d", ct, n))
	}
	sort.Strings(types)
	return fmt.Sprintf("%s: %d items (%s) -> %s", o.Source, md.TotalItems, strings.Join(types, " "), o.Paths.Dir)
}

// New builds an App from a resolved config. The store is opened unless
// cfg.NoDB is set.
func New(cfg config.Config) (*App, error) {
	a := &App{
		cfg: cfg,
		engine: engine.New(engine.Options{
			Base64MinLen:    cfg.Base64MinLen,
			MaxJSONAttempts: cfg.MaxJSONAttempts,
			MaxBytes:        cfg.MaxFileBytes,
			Summaries:       cfg.SegmentReport,
		}),
		loader: &ioformats.Loader{
			Dir:           cfg.OutputDir,
			RunScoped:     cfg.RunScoped,
			SegmentReport: cfg.SegmentReport,
		},
		client: fetch.NewHTTPClient(cfg.FetchTimeout, cfg.FetchTimeout/4, cfg.MaxFileBytes),
	}
	if !cfg.NoDB && cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		s, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.store = s
	}
	return a, nil
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) Config() config.Config { return a.cfg }

// persist writes outputs and, when enabled, the run store rows.
func (a *App) persist(ctx context.Context, source string, res models.Result) (Outcome, error) {
	out := Outcome{Source: source, Result: res}
	paths, err := a.loader.Save(ctx, res)
	if err != nil {
		out.Err = err
		return out, err
	}
	out.Paths = paths
	if a.store != nil {
		if err := a.store.SaveRun(ctx, res); err != nil {
			out.Err = fmt.Errorf("store run: %w", err)
			return out, out.Err
		}
	}
	return out, nil
}

func (a *App) ProcessFile(ctx context.Context, p string) (Outcome, error) {
	res, err := a.engine.RunFile(p)
	if err != nil {
		return Outcome{Source: p, Err: err}, err
	}
	return a.persist(ctx, p, res)
}

func (a *App) ProcessText(ctx context.Context, text, filename string) (Outcome, error) {
	res, err := a.engine.Run(text, filename)
	if err != nil {
		return Outcome{Source: filename, Err: err}, err
	}
	return a.persist(ctx, filename, res)
}

// ProcessBytes decodes an in-memory payload before running it.
func (a *App) ProcessBytes(ctx context.Context, data []byte, contentType, filename string) (Outcome, error) {
	res, err := a.engine.RunBytes(data, contentType, filename)
	if err != nil {
		return Outcome{Source: filename, Err: err}, err
	}
	return a.persist(ctx, filename, res)
}

func (a *App) ProcessURL(ctx context.Context, rawURL string) (Outcome, error) {
	data, finalURL, ct, err := a.client.FetchBytes(ctx, rawURL)
	if err != nil {
		return Outcome{Source: rawURL, Err: err}, err
	}
	out, err := a.ProcessBytes(ctx, data, ct, urlFilename(finalURL))
	out.Source = rawURL
	return out, err
}

// urlFilename names a fetched input after the last path element or the host.
func urlFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "remote"
	}
	if base := path.Base(u.Path); base != "/" && base != "." && base != "" {
		return base
	}
	if u.Host != "" {
		return u.Host
	}
	return "remote"
}

// ListInputs returns the regular, non-hidden files of dir in name order.
func ListInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ProcessDir processes every input file in dir with bounded concurrency.
// Outcomes keep the file order; per-file errors are reported, not returned.
func (a *App) ProcessDir(ctx context.Context, dir string) ([]Outcome, error) {
	files, err := ListInputs(dir)
	if err != nil {
		return nil, err
	}
	return a.each(ctx, files, a.ProcessFile), nil
}

// ProcessURLs fetches and processes each URL with bounded concurrency.
func (a *App) ProcessURLs(ctx context.Context, urls []string) []Outcome {
	return a.each(ctx, urls, a.ProcessURL)
}

func (a *App) each(ctx context.Context, inputs []string, fn func(context.Context, string) (Outcome, error)) []Outcome {
	results := make([]Outcome, len(inputs))
	conc := a.cfg.Concurrency
	if conc < 1 {
		conc = 1
	}
	sem := make(chan struct{}, conc)
	done := make(chan int, len(inputs))

	for i, in := range inputs {
		i, in := i, in
		sem <- struct{}{} // acquire
		go func() {
			defer func() { <-sem; done <- i }()
			if err := ctx.Err(); err != nil {
				results[i] = Outcome{Source: in, Err: err}
				return
			}
			out, err := fn(ctx, in)
			if err != nil {
				log.Error().Err(err).Str("input", in).Msg("processing failed")
			}
			results[i] = out
		}()
	}
	for range inputs {
		<-done
	}
	return results
}

// ProcessInput dispatches on the kind of input: an http(s) URL, a directory
// or a single file.
func (a *App) ProcessInput(ctx context.Context, input string) ([]Outcome, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		out, err := a.ProcessURL(ctx, input)
		return []Outcome{out}, err
	}
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", input, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", input, models.ErrUnreadable)
	}
	if info.IsDir() {
		return a.ProcessDir(ctx, input)
	}
	out, err := a.ProcessFile(ctx, input)
	return []Outcome{out}, err
}

// Watch processes files dropped into the input directory until ctx ends.
func (a *App) Watch(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.InputDir, 0o755); err != nil {
		return fmt.Errorf("create input dir: %w", err)
	}
	w := &watch.Watcher{
		Dir:         a.cfg.InputDir,
		Settle:      a.cfg.Settle,
		Concurrency: a.cfg.Concurrency,
		Handle: func(ctx context.Context, p string) error {
			out, err := a.ProcessFile(ctx, p)
			if err == nil {
				log.Info().Str("file", filepath.Base(p)).Int("items", out.Result.Metadata.TotalItems).Str("dir", out.Paths.Dir).Msg("processed")
			}
			return err
		},
	}
	return w.Run(ctx)
}
