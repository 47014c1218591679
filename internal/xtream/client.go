// Package xtream is a client for Xtream-style provider panels exposing
// player_api.php. It authenticates, lists categories and live streams, and
// maps the result into guide channels.
package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Khaja-s/iptv-player/internal/guide"
	"github.com/Khaja-s/iptv-player/internal/httpclient"
	"github.com/Khaja-s/iptv-player/internal/playlist"
)

// DefaultTimeout bounds each provider API call. Provider panels are slower
// than plain playlist hosts, hence the larger budget.
const DefaultTimeout = 20 * time.Second

// Credentials identify an account on a provider panel.
type Credentials struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Normalized returns a copy with the server URL carrying a scheme prefix and
// no trailing slashes.
func (c Credentials) Normalized() Credentials {
	s := strings.TrimSpace(c.Server)
	if s != "" && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}
	c.Server = strings.TrimRight(s, "/")
	return c
}

// UserInfo is the account block of the auth response.
type UserInfo struct {
	Username       string `json:"username"`
	Status         string `json:"status"` // "Active", "Expired", "Banned", ...
	ExpDate        string `json:"exp_date"`
	MaxConnections string `json:"max_connections"`
}

// Category is one provider category in server-supplied order.
type Category struct {
	ID   string
	Name string
}

// Stream is one live stream record from get_live_streams.
type Stream struct {
	ID         string
	Name       string
	Icon       string
	CategoryID string
}

// Client calls a provider panel. A rate limiter paces API calls so bursts of
// refreshes don't trip provider-side flood protection.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient returns a Client using httpClient, or the shared default when nil.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.Default()
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		timeout:    DefaultTimeout,
	}
}

// SetTimeout overrides the per-call budget. Zero or negative values are
// ignored and keep DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

func (c *Client) apiURL(creds Credentials, action string) string {
	u := creds.Server + "/player_api.php?username=" + url.QueryEscape(creds.Username) +
		"&password=" + url.QueryEscape(creds.Password)
	if action != "" {
		u += "&action=" + action
	}
	return u
}

func (c *Client) apiGet(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ChannelGuide/1.0")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return httpclient.ReadBody(resp)
}

// Authenticate validates creds against the panel. A non-2xx status or an
// unparseable body is reported as ErrInvalidServer; a recognized account with
// any status other than "Active" is reported as an AuthError carrying that
// status verbatim.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*UserInfo, error) {
	creds = creds.Normalized()
	body, err := c.apiGet(ctx, c.apiURL(creds, ""))
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidServer, se.Code)
		}
		return nil, err
	}
	var auth struct {
		UserInfo *UserInfo `json:"user_info"`
	}
	if err := json.Unmarshal(body, &auth); err != nil || auth.UserInfo == nil {
		return nil, fmt.Errorf("%w: unrecognized response", ErrInvalidServer)
	}
	if auth.UserInfo.Status != "Active" {
		return nil, &AuthError{Status: auth.UserInfo.Status}
	}
	return auth.UserInfo, nil
}

// FetchCategories lists the provider's live categories in server order.
func (c *Client) FetchCategories(ctx context.Context, creds Credentials) ([]Category, error) {
	creds = creds.Normalized()
	body, err := c.apiGet(ctx, c.apiURL(creds, "get_live_categories"))
	if err != nil {
		return nil, err
	}
	var raw []struct {
		CategoryID   interface{} `json:"category_id"`
		CategoryName string      `json:"category_name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	out := make([]Category, 0, len(raw))
	for _, r := range raw {
		out = append(out, Category{ID: idString(r.CategoryID), Name: r.CategoryName})
	}
	return out, nil
}

// FetchStreams lists the provider's live streams in server order.
func (c *Client) FetchStreams(ctx context.Context, creds Credentials) ([]Stream, error) {
	creds = creds.Normalized()
	body, err := c.apiGet(ctx, c.apiURL(creds, "get_live_streams"))
	if err != nil {
		return nil, err
	}
	var raw []struct {
		StreamID   interface{} `json:"stream_id"`
		Name       string      `json:"name"`
		StreamIcon string      `json:"stream_icon"`
		CategoryID interface{} `json:"category_id"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("streams: %w", err)
	}
	out := make([]Stream, 0, len(raw))
	for _, r := range raw {
		out = append(out, Stream{
			ID:         idString(r.StreamID),
			Name:       strings.TrimSpace(r.Name),
			Icon:       r.StreamIcon,
			CategoryID: idString(r.CategoryID),
		})
	}
	return out, nil
}

// BuildStreamURL constructs the playback URL for a stream id. Pure and
// deterministic; the .m3u8 suffix selects the HLS container.
func BuildStreamURL(creds Credentials, streamID string) string {
	creds = creds.Normalized()
	return fmt.Sprintf("%s/live/%s/%s/%s.m3u8",
		creds.Server, url.PathEscape(creds.Username), url.PathEscape(creds.Password), url.PathEscape(streamID))
}

// LoadChannels runs the full provider ingestion: authenticate first so bad
// credentials fail before any listing work, then fetch categories and streams
// concurrently, then map every stream to a channel. onStatus receives short
// phase labels for UI feedback and has no effect on control flow.
func (c *Client) LoadChannels(ctx context.Context, creds Credentials, onStatus func(string)) (guide.Result, error) {
	if onStatus == nil {
		onStatus = func(string) {}
	}
	creds = creds.Normalized()

	onStatus("Authenticating")
	if _, err := c.Authenticate(ctx, creds); err != nil {
		return guide.Result{}, err
	}

	onStatus("Fetching channels")
	var (
		wg      sync.WaitGroup
		cats    []Category
		streams []Stream
		catErr  error
		strErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cats, catErr = c.FetchCategories(ctx, creds)
	}()
	go func() {
		defer wg.Done()
		streams, strErr = c.FetchStreams(ctx, creds)
	}()
	wg.Wait()
	if strErr != nil {
		return guide.Result{}, fmt.Errorf("live streams: %w", strErr)
	}
	if catErr != nil {
		return guide.Result{}, fmt.Errorf("live categories: %w", catErr)
	}

	onStatus("Processing")
	catName := make(map[string]string, len(cats))
	categories := make([]string, 0, len(cats))
	for _, cat := range cats {
		catName[cat.ID] = cat.Name
		categories = append(categories, cat.Name)
	}
	channels := make([]guide.Channel, 0, len(streams))
	for _, s := range streams {
		if s.ID == "" {
			continue
		}
		group, ok := catName[s.CategoryID]
		if !ok || group == "" {
			group = guide.DefaultGroup
		}
		streamURL := BuildStreamURL(creds, s.ID)
		name := s.Name
		if name == "" {
			name = "Channel " + s.ID
		}
		channels = append(channels, guide.Channel{
			ID:    playlist.ChannelID(streamURL),
			Name:  name,
			URL:   streamURL,
			Logo:  s.Icon,
			Group: group,
		})
	}
	return guide.Result{Channels: channels, Categories: categories}, nil
}

// idString coerces the numeric-or-string ids Xtream panels emit.
func idString(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case string:
		return x
	}
	return ""
}
