// Package safeurl validates user-supplied source URLs before any network
// I/O happens on them.
package safeurl

import (
	"errors"
	"net/url"
)

// ErrScheme rejects schemes other than http and https. Playlist URLs come
// straight from user input; file://, ftp:// and friends must never reach the
// fetch path.
var ErrScheme = errors.New("url scheme must be http or https")

// Check reports whether raw is a fetchable source URL.
func Check(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrScheme
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}
