package ioformats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"brightedge-go-etl/internal/models"
)

type OutputFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ListOutputs walks dir for output files, newest first.
func ListOutputs(dir string) ([]OutputFile, error) {
	var out []OutputFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		switch d.Name() {
		case CSVFile, SchemaFile, MetadataFile, SegmentsFile:
		default:
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, OutputFile{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Path < out[j].Path
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

func ReadMetadata(path string) (models.RunMetadata, error) {
	var md models.RunMetadata
	b, err := os.ReadFile(path)
	if err != nil {
		return md, err
	}
	if err := json.Unmarshal(b, &md); err != nil {
		return md, fmt.Errorf("parse %s: %w", path, err)
	}
	return md, nil
}

// LatestMetadata returns the most recently written run metadata under dir.
func LatestMetadata(dir string) (models.RunMetadata, string, error) {
	files, err := ListOutputs(dir)
	if err != nil {
		return models.RunMetadata{}, "", err
	}
	for _, f := range files {
		if filepath.Base(f.Path) == MetadataFile {
			md, err := ReadMetadata(f.Path)
			return md, f.Path, err
		}
	}
	return models.RunMetadata{}, "", models.ErrNotFound
}
