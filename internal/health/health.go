// Package health performs lightweight reachability checks against a
// configured source and a running guide instance. These checks never touch
// ingestion state; they are for operators and the check subcommand.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Khaja-s/iptv-player/internal/httpclient"
)

// CheckPlaylist fetches playlistURL and discards the body. Returns nil when
// the URL answers 200. GET rather than HEAD; plenty of playlist hosts reject
// HEAD outright.
func CheckPlaylist(ctx context.Context, client *http.Client, playlistURL string) error {
	if playlistURL == "" {
		return fmt.Errorf("no playlist URL configured")
	}
	if client == nil {
		client = httpclient.WithTimeout(15 * time.Second)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("playlist unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("playlist returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// CheckEndpoints hits the guide API's read endpoints at baseURL and returns
// the first failure, or nil when all answer 200.
func CheckEndpoints(ctx context.Context, baseURL string) error {
	client := httpclient.WithTimeout(5 * time.Second)
	for _, path := range []string{"/api/status", "/api/channels", "/api/categories"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
		}
	}
	return nil
}
