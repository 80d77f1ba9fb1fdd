// Package reader loads raw input bytes and decodes them to text. UTF-8 is
// tried first; undecodable input falls back to a sniffed charset when the
// bytes declare one, else to ISO-8859-1, which accepts any byte sequence.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	"brightedge-go-etl/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Options struct {
	// MaxBytes rejects larger files; 0 disables the cap.
	MaxBytes int64
}

type Reader struct {
	maxBytes int64
}

func New(opts Options) *Reader { return &Reader{maxBytes: opts.MaxBytes} }

// ReadFile returns the decoded contents of path. Errors wrap one of the
// models input sentinels and name the path.
func (r *Reader) ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", path, models.ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w: %v", path, models.ErrUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("read %s: %w: not a regular file", path, models.ErrUnreadable)
	}
	if r.maxBytes > 0 && info.Size() > r.maxBytes {
		return "", fmt.Errorf("read %s: %w: %d bytes exceeds %d", path, models.ErrTooLarge, info.Size(), r.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %v", path, models.ErrUnreadable, err)
	}
	text, err := Decode(data, "")
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return text, nil
}

// Decode converts data to a UTF-8 string. contentType may carry a charset
// parameter (from an HTTP response) and may be empty.
func Decode(data []byte, contentType string) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", models.ErrEmptyInput
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	// BOMs and explicit charset declarations win over the latin-1 fallback.
	// windows-1252 is also charset's own default guess, so only trust it when certain.
	enc, name, certain := charset.DetermineEncoding(data, contentType)
	if certain || (name != "windows-1252" && name != "utf-8") {
		if out, err := enc.NewDecoder().Bytes(data); err == nil {
			return strings.TrimPrefix(string(out), "\uFEFF"), nil
		}
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnreadable, err)
	}
	return string(out), nil
}
