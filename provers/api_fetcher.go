package relayer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher implements Fetcher over plain HTTP(S) GET requests
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new HTTPFetcher whose requests give up after timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the artifact at url.
// Any non-200 answer is reported as a *FetchError carrying the status.
func (a *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("invalid request: %w", err)}
	}

	// Send HTTP GET request
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	return body, nil
}
