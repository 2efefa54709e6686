// Package netx fetches objects over presigned URLs.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
)

// ErrTooLarge is returned when a response body exceeds the downloader limit.
var ErrTooLarge = errors.New("response body too large")

// Downloader retrieves whole objects through short-lived signed URLs.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader returns a Downloader whose requests give up after timeout.
// The timeout should not outlive the signed URLs it is used with, so that a
// fetch against an expired URL fails instead of hanging. maxBytes <= 0 means
// no limit.
func NewDownloader(timeout time.Duration, maxBytes int64) *Downloader {
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Get downloads the object at url in full. Transport failures, timeouts and
// non-2xx responses are reported as common.ErrorTransient.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", common.ErrorTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: fetch failed: %s; body: %s", common.ErrorTransient, resp.Status, string(b))
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", common.ErrorTransient, err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxBytes)
	}
	return data, nil
}
