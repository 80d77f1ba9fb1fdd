package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"brightedge-go-etl/internal/ioformats"
	"brightedge-go-etl/internal/models"
)

// ProcessAll processes every file in the input directory and reports one
// line per file.
func (a *App) ProcessAll(ctx context.Context) (string, error) {
	outs, err := a.ProcessDir(ctx, a.cfg.InputDir)
	if err != nil {
		return "", err
	}
	if len(outs) == 0 {
		return fmt.Sprintf("no files in %s", a.cfg.InputDir), nil
	}
	lines := make([]string, len(outs))
	for i, o := range outs {
		lines[i] = o.String()
	}
	return strings.Join(lines, "\n"), nil
}

// ProcessNamed processes one file of the input directory by name.
func (a *App) ProcessNamed(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	out, err := a.ProcessFile(ctx, filepath.Join(a.cfg.InputDir, name))
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// DescribeOutputs lists output files, the latest run metadata and, when the
// store is open, the most recent runs.
func (a *App) DescribeOutputs(ctx context.Context) (string, error) {
	files, err := ioformats.ListOutputs(a.cfg.OutputDir)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if len(files) == 0 {
		fmt.Fprintf(&b, "no outputs in %s\n", a.cfg.OutputDir)
		return b.String(), nil
	}
	fmt.Fprintf(&b, "Output files in %s:\n", a.cfg.OutputDir)
	for _, f := range files {
		rel, err := filepath.Rel(a.cfg.OutputDir, f.Path)
		if err != nil {
			rel = f.Path
		}
		fmt.Fprintf(&b, "  %-60s %10d bytes\n", rel, f.Size)
	}

	md, _, err := ioformats.LatestMetadata(a.cfg.OutputDir)
	if err == nil {
		fmt.Fprintf(&b, "\nLatest run %s\n", md.RunID)
		fmt.Fprintf(&b, "  file:     %s\n", md.Filename)
		fmt.Fprintf(&b, "  items:    %d %s\n", md.TotalItems, formatCounts(md.ItemsByType))
		fmt.Fprintf(&b, "  duration: %.3fs\n", md.DurationSeconds)
		if md.DemotedCount > 0 {
			fmt.Fprintf(&b, "  demoted:  %d\n", md.DemotedCount)
		}
	}

	if a.store != nil {
		runs, err := a.store.Runs(ctx, 5)
		if err != nil {
			return "", err
		}
		if len(runs) > 0 {
			b.WriteString("\nRecent runs:\n")
			for _, r := range runs {
				fmt.Fprintf(&b, "  %s  %-30s %d items\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.Filename, r.TotalItems)
			}
		}
	}
	return b.String(), nil
}

func formatCounts(m map[models.ContentType]int) string {
	parts := make([]string, 0, 3)
	for _, ct := range []models.ContentType{models.ContentHTML, models.ContentJSON, models.ContentText} {
		if n := m[ct]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", ct, n))
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}
