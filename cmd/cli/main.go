package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"brightedge-go-etl/internal/app"
	"brightedge-go-etl/internal/config"
	"brightedge-go-etl/internal/ioformats"
	"brightedge-go-etl/internal/menu"
	"brightedge-go-etl/pkg/logger"
)

const usage = `usage: etl [process|watch|menu|outputs] [flags]

  process   process -input (file, folder or http(s) URL) or -urls (default)
  watch     process files as they appear in the input folder
  menu      interactive menu
  outputs   list output files and the latest run
`

type outRec struct {
	Source      string         `json:"source"`
	Items       int            `json:"items,omitempty"`
	ItemsByType map[string]int `json:"items_by_type,omitempty"`
	OutputDir   string         `json:"output_dir,omitempty"`
	RunID       string         `json:"run_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func main() {
	args := os.Args[1:]
	cmd := "process"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	var cfg config.Config
	cfgPath := config.BindFlags(fs, &cfg)
	in := fs.String("input", "", "process: input file, folder or URL (default the input folder)")
	urls := fs.String("urls", "", "process: csv (with 'url' column) or ndjson file of URLs")
	report := fs.String("report", "", "process: NDJSON report file (default stdout)")
	_ = fs.Parse(args)

	if err := config.Resolve(&cfg, *cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	defer a.Close()

	var code int
	switch cmd {
	case "process":
		code = runProcess(ctx, a, cfg, *in, *urls, *report)
	case "watch":
		code = runWatch(ctx, a)
	case "menu":
		code = runMenu(ctx, a, cfg)
	case "outputs":
		desc, err := a.DescribeOutputs(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "outputs:", err)
			code = 1
		}
		fmt.Print(desc)
	default:
		fs.Usage()
		code = 2
	}
	if code != 0 {
		a.Close()
		os.Exit(code)
	}
}

func runProcess(ctx context.Context, a *app.App, cfg config.Config, in, urlFile, reportPath string) int {
	var outs []app.Outcome
	if urlFile != "" {
		list, err := ioformats.ReadURLs(urlFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read urls:", err)
			return 1
		}
		outs = a.ProcessURLs(ctx, list)
	} else {
		if in == "" {
			in = cfg.InputDir
		}
		var err error
		outs, err = a.ProcessInput(ctx, in)
		if err != nil && len(outs) == 0 {
			fmt.Fprintln(os.Stderr, "process:", err)
			return 1
		}
	}

	var w io.Writer = os.Stdout
	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create report:", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	items := make([]any, 0, len(outs))
	failed := 0
	for _, o := range outs {
		rec := outRec{Source: o.Source}
		if o.Err != nil {
			rec.Error = o.Err.Error()
			failed++
		} else {
			md := o.Result.Metadata
			rec.Items, rec.OutputDir, rec.RunID = md.TotalItems, o.Paths.Dir, md.RunID
			rec.ItemsByType = map[string]int{}
			for ct, n := range md.ItemsByType {
				rec.ItemsByType[string(ct)] = n
			}
		}
		items = append(items, rec)
	}
	if err := ioformats.WriteNDJSON(w, items); err != nil {
		fmt.Fprintln(os.Stderr, "write report:", err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func runWatch(ctx context.Context, a *app.App) int {
	fmt.Fprintf(os.Stderr, "watching %s (ctrl+c to stop)\n", a.Config().InputDir)
	if err := a.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "watch:", err)
		return 1
	}
	return 0
}

func runMenu(ctx context.Context, a *app.App, cfg config.Config) int {
	final, err := tea.NewProgram(menu.New(ctx, a, cfg.InputDir)).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "menu:", err)
		return 1
	}
	if m, ok := final.(menu.Model); ok && m.Chosen() == menu.ActionWatch {
		return runWatch(ctx, a)
	}
	return 0
}
