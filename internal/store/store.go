// Package store persists the last-used source, cached guide data, and
// provider credentials. All values are JSON under well-known keys; a missing
// key is never an error, so partial writes degrade to "nothing cached".
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Khaja-s/iptv-player/internal/guide"
	"github.com/Khaja-s/iptv-player/internal/xtream"
)

// Mode tags which ingestion path produced the cached data.
type Mode string

const (
	ModeNone     Mode = ""
	ModePlaylist Mode = "playlist"
	ModeProvider Mode = "provider"
)

// Metadata describes the cached guide data.
type Metadata struct {
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	keyPlaylistURL = "playlist_url"
	keyChannels    = "channels"
	keyCategories  = "categories"
	keyMetadata    = "metadata"
	keyCredentials = "credentials"
	keyMode        = "mode"
)

// KV is the minimal key-value backend a Store needs. Get reports ok=false for
// missing keys.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Store exposes typed accessors over a KV backend.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Close() error { return s.kv.Close() }

func (s *Store) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	b, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		// Treat a corrupt cached value like a missing one; cache is best-effort.
		return false, nil
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, b)
}

// PlaylistURL returns the last saved playlist URL, or "".
func (s *Store) PlaylistURL(ctx context.Context) (string, error) {
	var u string
	_, err := s.getJSON(ctx, keyPlaylistURL, &u)
	return u, err
}

func (s *Store) SavePlaylistURL(ctx context.Context, u string) error {
	return s.setJSON(ctx, keyPlaylistURL, u)
}

// Channels returns the cached channel list, or nil.
func (s *Store) Channels(ctx context.Context) ([]guide.Channel, error) {
	var out []guide.Channel
	_, err := s.getJSON(ctx, keyChannels, &out)
	return out, err
}

func (s *Store) SaveChannels(ctx context.Context, channels []guide.Channel) error {
	return s.setJSON(ctx, keyChannels, channels)
}

// Categories returns the cached category list. Missing or partial category
// data is an empty list, never an error.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var out []string
	_, err := s.getJSON(ctx, keyCategories, &out)
	return out, err
}

func (s *Store) SaveCategories(ctx context.Context, categories []string) error {
	return s.setJSON(ctx, keyCategories, categories)
}

// Metadata returns the cached guide metadata, or nil.
func (s *Store) Metadata(ctx context.Context) (*Metadata, error) {
	var m Metadata
	ok, err := s.getJSON(ctx, keyMetadata, &m)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

func (s *Store) SaveMetadata(ctx context.Context, m Metadata) error {
	return s.setJSON(ctx, keyMetadata, m)
}

// Credentials returns the saved provider credentials, or nil.
func (s *Store) Credentials(ctx context.Context) (*xtream.Credentials, error) {
	var c xtream.Credentials
	ok, err := s.getJSON(ctx, keyCredentials, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveCredentials(ctx context.Context, c xtream.Credentials) error {
	return s.setJSON(ctx, keyCredentials, c)
}

// Mode returns the saved connection mode tag.
func (s *Store) Mode(ctx context.Context) (Mode, error) {
	var m Mode
	_, err := s.getJSON(ctx, keyMode, &m)
	return m, err
}

func (s *Store) SaveMode(ctx context.Context, m Mode) error {
	return s.setJSON(ctx, keyMode, m)
}

// Clear removes every key the store owns.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, keyPlaylistURL, keyChannels, keyCategories, keyMetadata, keyCredentials, keyMode)
}
