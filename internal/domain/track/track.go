// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Track represents a playable item. Identity is the locator URI
// (local path, file:// or streaming URL); everything else is optional
// display metadata. Tracks are immutable value objects.
type Track struct {
	URI      string        // Locator (identity)
	Title    string        // Display title (optional)
	Duration time.Duration // Known duration, zero if unknown
}

// New creates a Track from a locator URI.
// An empty or whitespace-only locator is rejected; the queue must
// never contain one.
func New(uri string) (Track, error) {
	if strings.TrimSpace(uri) == "" {
		return Track{}, errors.New("track locator must not be empty")
	}
	return Track{URI: uri}, nil
}

// String returns the display title if set, otherwise the locator.
func (t Track) String() string {
	if t.Title != "" {
		return t.Title
	}
	return t.URI
}
