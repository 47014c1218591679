package httpclient

import (
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

const bodyText = "#EXTM3U\n#EXTINF:-1,One\nhttp://s/1\n"

func fetch(t *testing.T, srv *httptest.Server) []byte {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept-Encoding", AcceptEncoding)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := ReadBody(resp)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestReadBody_plain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bodyText))
	}))
	defer srv.Close()
	if got := fetch(t, srv); string(got) != bodyText {
		t.Errorf("body = %q", got)
	}
}

func TestReadBody_gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(bodyText))
		gz.Close()
	}))
	defer srv.Close()
	if got := fetch(t, srv); string(got) != bodyText {
		t.Errorf("body = %q", got)
	}
}

func TestReadBody_brotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		br := brotli.NewWriter(w)
		br.Write([]byte(bodyText))
		br.Close()
	}))
	defer srv.Close()
	if got := fetch(t, srv); string(got) != bodyText {
		t.Errorf("body = %q", got)
	}
}

func TestReadBody_unknownEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if _, err := ReadBody(resp); err == nil {
		t.Error("expected error for unsupported encoding")
	}
}
