// Package fetch downloads remote text inputs.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brightedge-go-etl/internal/models"
)

var (
	ErrUnsupportedType = errors.New("unsupported content type")
	// ErrUpstream wraps every failure to retrieve the remote body.
	ErrUpstream = errors.New("upstream fetch failed")
)

type HTTPClient struct {
	client    *http.Client
	sizeCap   int64
	userAgent string
}

func NewHTTPClient(timeout, dialTimeout time.Duration, sizeCap int64) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		sizeCap:   sizeCap,
		userAgent: "brightedge-go-etl/1.0",
	}
}

// textual reports whether a media type can be treated as an ETL input.
// An empty type is allowed since some servers omit it.
func textual(mediaType string) bool {
	switch {
	case mediaType == "":
		return true
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json", mediaType == "application/x-ndjson",
		mediaType == "application/xml", mediaType == "application/xhtml+xml":
		return true
	case strings.HasSuffix(mediaType, "+json"), strings.HasSuffix(mediaType, "+xml"):
		return true
	}
	return false
}

type body struct {
	io.Reader
	closers []io.Closer
}

func (b *body) Close() error {
	var err error
	for _, c := range b.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Fetch returns the response body (limited to the size cap), the final URL
// after redirects, the content type and the time to first byte.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error) {
	start := time.Now()
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", "", 0, fmt.Errorf("invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", "", 0, err
	}
	req.Header.Set("Accept", "text/*,application/json,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", "", 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, "", "", 0, fmt.Errorf("http status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !textual(mediaType) {
		resp.Body.Close()
		return nil, "", "", 0, fmt.Errorf("%s: %w", mediaType, ErrUnsupportedType)
	}

	b := &body{Reader: resp.Body, closers: []io.Closer{resp.Body}}
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, "", "", 0, err
		}
		b.Reader = gz
		b.closers = append([]io.Closer{gz}, b.closers...)
	}
	// enforce a size cap
	b.Reader = io.LimitReader(b.Reader, h.sizeCap+1)

	return b, resp.Request.URL.String(), contentType, time.Since(start), nil
}

// FetchBytes reads the whole body, failing with models.ErrTooLarge when it
// exceeds the size cap.
func (h *HTTPClient) FetchBytes(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	rc, finalURL, ct, _, err := h.Fetch(ctx, rawURL)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch %s: %w: %w", rawURL, ErrUpstream, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch %s: %w: %w", rawURL, ErrUpstream, err)
	}
	if int64(len(data)) > h.sizeCap {
		return nil, "", "", fmt.Errorf("fetch %s: %w", rawURL, models.ErrTooLarge)
	}
	return data, finalURL, ct, nil
}
