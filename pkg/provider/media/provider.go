// Package media defines the interface for resolving free-form play requests
// into concrete playable tracks.
package media

import (
	"context"
	"errors"
)

// ErrNoResult is returned by [Provider.Resolve] when the query matched
// nothing.
var ErrNoResult = errors.New("media: no result for query")

// Track is a resolved media item.
type Track struct {
	// ID is the backend-specific track identifier.
	ID string
	// Title is the human-readable title.
	Title string
	// URL is a canonical URL for the track, suitable for handing to a
	// downloader.
	URL string
}

// Provider resolves a free-form search query into a playable track.
type Provider interface {
	// Resolve returns the best match for query, or [ErrNoResult] if nothing
	// matched.
	Resolve(ctx context.Context, query string) (Track, error)
}
