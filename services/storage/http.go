package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxFetchBytes caps downloads through Fetch.
const MaxFetchBytes = 32 << 20

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

func httpFetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = defaultHTTPClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(data) > MaxFetchBytes {
		return nil, fmt.Errorf("failed to fetch %s: body exceeds %d bytes", url, MaxFetchBytes)
	}
	return data, nil
}
