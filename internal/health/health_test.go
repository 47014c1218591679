package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.m3u":
			w.Write([]byte("#EXTM3U\n"))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	if err := CheckPlaylist(ctx, srv.Client(), srv.URL+"/ok.m3u"); err != nil {
		t.Errorf("ok url: %v", err)
	}
	if err := CheckPlaylist(ctx, srv.Client(), srv.URL+"/gone.m3u"); err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("forbidden url: %v", err)
	}
	if err := CheckPlaylist(ctx, srv.Client(), ""); err == nil {
		t.Error("empty url should fail")
	}
}

func TestCheckEndpoints(t *testing.T) {
	var failStatus bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failStatus && r.URL.Path == "/api/status" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("{}"))
	}))
	defer srv.Close()
	ctx := context.Background()

	if err := CheckEndpoints(ctx, srv.URL); err != nil {
		t.Errorf("healthy instance: %v", err)
	}
	failStatus = true
	if err := CheckEndpoints(ctx, srv.URL); err == nil || !strings.Contains(err.Error(), "/api/status") {
		t.Errorf("unhealthy instance: %v", err)
	}
}
