package relayer

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileFetcher implements Fetcher by reading artifacts from the local filesystem.
// It accepts file:// URLs and plain paths.
type FileFetcher struct{}

// NewFileFetcher creates a new FileFetcher
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the artifact file
func (f *FileFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	path := strings.TrimPrefix(url, "file://")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to read file %s: %w", path, err)}
	}

	return data, nil
}
