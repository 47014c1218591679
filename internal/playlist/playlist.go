// Package playlist parses M3U-style playlist text into guide channels.
// Parsing is a single streaming pass and never fails: malformed entries are
// dropped silently, which is the intended tolerance for real-world playlists.
package playlist

import (
	"bufio"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/Khaja-s/iptv-player/internal/guide"
)

const maxLineSize = 1 << 20 // 1 MiB per line

// Parse scans content line by line. Each #EXTINF directive is paired with the
// next non-comment line as the entry URL; entries without an http(s) URL are
// skipped. Categories are the distinct group values across accepted entries,
// sorted ascending with "Uncategorized" always last.
func Parse(content string) guide.Result {
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(nil, maxLineSize)

	var channels []guide.Channel
	groups := make(map[string]bool)
	var extinf string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			// A directive without a following URL is dropped when the next one starts.
			extinf = line
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if extinf == "" {
			continue
		}
		if ch, ok := buildChannel(extinf, line); ok {
			channels = append(channels, ch)
			groups[ch.Group] = true
		}
		extinf = ""
	}
	// Scanner errors cannot occur on a string reader except for over-long
	// lines; any remaining pending directive had no URL and is dropped.

	return guide.Result{Channels: channels, Categories: sortedCategories(groups)}
}

func buildChannel(extinf, url string) (guide.Channel, bool) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return guide.Channel{}, false
	}
	group := attr(extinf, "group-title")
	if group == "" {
		group = guide.DefaultGroup
	}
	return guide.Channel{
		ID:       ChannelID(url),
		Name:     displayName(extinf),
		URL:      url,
		Logo:     attr(extinf, "tvg-logo"),
		Group:    group,
		Language: attr(extinf, "tvg-language"),
	}, true
}

// displayName prefers the tvg-name attribute, then the text after the last
// comma of the directive line, then "Unknown".
func displayName(extinf string) string {
	if name := attr(extinf, "tvg-name"); name != "" {
		return name
	}
	if i := strings.LastIndex(extinf, ","); i >= 0 {
		if name := strings.TrimSpace(extinf[i+1:]); name != "" {
			return name
		}
	}
	return "Unknown"
}

// attr extracts a key="value" attribute from the directive line; "" if absent.
func attr(extinf, key string) string {
	prefix := key + `="`
	i := strings.Index(extinf, prefix)
	if i < 0 {
		return ""
	}
	i += len(prefix)
	j := strings.Index(extinf[i:], `"`)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(extinf[i : i+j])
}

// ChannelID derives a stable channel id from the stream URL.
//
// The algorithm is a pinned contract: a 32-bit rolling hash over the URL's
// UTF-16 code units (h = (h<<5) - h + cu with int32 wraparound), made
// non-negative and base-36 encoded. Collisions are theoretically possible but
// accepted; changing the algorithm would change every derived id and break
// favorite-by-id persistence across versions.
func ChannelID(url string) string {
	var h int32
	for _, cu := range utf16.Encode([]rune(url)) {
		h = (h << 5) - h + int32(cu)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

func sortedCategories(groups map[string]bool) []string {
	if len(groups) == 0 {
		return nil
	}
	out := make([]string, 0, len(groups))
	hasDefault := false
	for g := range groups {
		if g == guide.DefaultGroup {
			hasDefault = true
			continue
		}
		out = append(out, g)
	}
	sort.Strings(out)
	if hasDefault {
		out = append(out, guide.DefaultGroup)
	}
	return out
}
