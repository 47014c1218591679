package httpclient

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is the value sent on outgoing requests. Setting the header
// explicitly disables the transport's automatic gzip handling, so ReadBody
// must be used on every response fetched this way.
const AcceptEncoding = "gzip, br"

// ReadBody reads and decodes a response body according to its
// Content-Encoding. Playlist CDNs commonly negotiate brotli for large text
// bodies; plain and gzip bodies pass through.
func ReadBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
	return io.ReadAll(r)
}
