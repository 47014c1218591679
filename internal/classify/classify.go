// Package classify detects provider-API URLs handed in as "playlist URLs".
// Users paste get.php / player_api.php links straight from their provider;
// routing those through the API path gives categories and cleaner names.
package classify

import (
	"net/url"
	"strings"

	"github.com/Khaja-s/iptv-player/internal/xtream"
)

// Classify reports whether rawURL is really a provider-API URL and, if so,
// extracts the credentials embedded in it. Pure: parse failures and plain
// playlist URLs both return ok=false, never an error. The server base is
// rebuilt from scheme+host only, dropping path and query.
func Classify(rawURL string) (xtream.Credentials, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return xtream.Credentials{}, false
	}
	path := strings.ToLower(u.Path)
	if !strings.Contains(path, "get.php") && !strings.Contains(path, "player_api.php") {
		return xtream.Credentials{}, false
	}
	q := u.Query()
	user := q.Get("username")
	pass := q.Get("password")
	if user == "" || pass == "" {
		return xtream.Credentials{}, false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xtream.Credentials{}, false
	}
	return xtream.Credentials{
		Server:   u.Scheme + "://" + u.Host,
		Username: user,
		Password: pass,
	}, true
}
