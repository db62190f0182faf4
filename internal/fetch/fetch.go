// Package fetch pulls resolved media URLs into memory.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"linklift/internal/domain"
)

const defaultChunkBytes = 8192

// Fetcher issues single-attempt streaming GETs for direct media URLs. The
// body is read in bounded chunks so a large payload never has to be
// materialized by the transport before the first byte is consumed. No size
// cap is enforced here; oversize is the delivery layer's call.
type Fetcher struct {
	client *http.Client
	chunk  int
	logger *slog.Logger
}

type Config struct {
	Timeout    time.Duration
	ChunkBytes int
	Logger     *slog.Logger
}

func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = defaultChunkBytes
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		chunk:  cfg.ChunkBytes,
		logger: cfg.Logger,
	}
}

// Fetch retrieves the media at rawURL. A non-2xx status yields a
// *domain.TransferError; there are no retries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.Transfer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("media fetch rejected", "status", resp.StatusCode, "url", rawURL)
		return nil, &domain.TransferError{Status: resp.StatusCode, URL: rawURL}
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	chunk := make([]byte, f.chunk)
	if _, err := io.CopyBuffer(&buf, resp.Body, chunk); err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}

	return &domain.Transfer{
		Data:     buf.Bytes(),
		FileName: fileNameFor(rawURL),
	}, nil
}

// fileNameFor derives an attachment name from the URL path, defaulting to
// video.mp4 when the path carries no usable extension.
func fileNameFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "video.mp4"
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" || !strings.Contains(base, ".") {
		return "video.mp4"
	}
	return base
}
