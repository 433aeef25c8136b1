package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/pkg/version"
)

var (
	// ErrFetch wraps transport failures reaching a remote source.
	ErrFetch = errors.New("loader: fetch failed")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("loader: unexpected status")
	// ErrTooLarge is returned when a source exceeds the size limit.
	ErrTooLarge = errors.New("loader: source too large")
)

// snippetBytes bounds the response body quoted in status errors.
const snippetBytes = 512

// Fetcher downloads remote sources.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher returns a Fetcher. A nil client uses one with the default fetch
// timeout; maxBytes <= 0 selects the default limit.
func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: config.DefaultFetchTimeout}
	}
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxSourceBytes
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// NewHTTPClient returns a client with the given overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Fetch issues a single GET. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, snippetBytes))
		snippet := strings.TrimSpace(string(b))
		if snippet == "" {
			return nil, fmt.Errorf("%w %s from %s", ErrStatus, resp.Status, url)
		}
		return nil, fmt.Errorf("%w %s from %s: %s", ErrStatus, resp.Status, url, snippet)
	}

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, resp.ContentLength, f.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}
