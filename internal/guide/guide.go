// Package guide holds the normalized channel/category data model and the
// committed in-memory collection the rest of the app reads from.
package guide

import "sync"

// Channel is one playable live channel. ID is deterministic for a given
// source record so re-ingesting an unchanged source yields identical ids.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Logo     string `json:"logo,omitempty"`
	Group    string `json:"group"`
	Language string `json:"language,omitempty"`
}

// DefaultGroup is the bucket for channels whose source carries no category.
const DefaultGroup = "Uncategorized"

// Result is one complete ingestion outcome: channels in source order plus
// the category list (ordering is source-dependent; see playlist and xtream).
type Result struct {
	Channels   []Channel `json:"channels"`
	Categories []string  `json:"categories"`
}

// Guide is the committed channel/category state. Reads take a snapshot copy;
// Replace swaps both collections atomically.
type Guide struct {
	mu         sync.RWMutex
	channels   []Channel
	categories []string
}

func New() *Guide {
	return &Guide{}
}

// Replace commits a new result, replacing both collections at once.
func (g *Guide) Replace(channels []Channel, categories []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels = channels
	g.categories = categories
}

// Snapshot returns copies of the committed channels and categories.
func (g *Guide) Snapshot() ([]Channel, []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	channels := make([]Channel, len(g.channels))
	copy(channels, g.channels)
	categories := make([]string, len(g.categories))
	copy(categories, g.categories)
	return channels, categories
}

// Count returns the committed channel count.
func (g *Guide) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.channels)
}
