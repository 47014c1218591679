// Package httpclient provides the shared tuned HTTP client used by the
// playlist fetcher and the provider API client.
package httpclient

import (
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 16
)

var defaultClient *http.Client

func init() {
	t := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}
	// Some provider panels are fronted by CDNs that only perform well over h2.
	if err := http2.ConfigureTransport(t); err != nil {
		log.Printf("httpclient: http2 unavailable: %v", err)
	}
	defaultClient = &http.Client{
		Timeout:   DefaultTimeout,
		Transport: t,
	}
}

// Default returns the shared tuned HTTP client.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given timeout and the same transport as Default (or a copy).
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: t.Clone(),
	}
}
