package welcome

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBackgroundSize caps background downloads.
const MaxBackgroundSize = 8 << 20

// Fetcher downloads a template background.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads over HTTP with a per-request timeout.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPFetcher creates a fetcher bounded by timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{}, timeout: timeout}
}

// Fetch returns the body of url. Non-2xx responses and bodies over
// MaxBackgroundSize are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch background: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch background: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBackgroundSize+1))
	if err != nil {
		return nil, fmt.Errorf("read background: %w", err)
	}
	if len(data) > MaxBackgroundSize {
		return nil, fmt.Errorf("background exceeds %d bytes", MaxBackgroundSize)
	}
	return data, nil
}
