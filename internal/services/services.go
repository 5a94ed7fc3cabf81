// Package services holds the external integrations: the yt-dlp playlist
// source and the Castopod podcast host client.
package services

import (
	"context"
)

// Source defines the interface for playlist providers that can enumerate and
// download episodes.
type Source interface {
	// Metadata enumerates the playlist's entries without downloading media.
	Metadata(ctx context.Context, playlistID string) ([]Entry, error)

	// Download fetches only the given entries into dir, extracting audio in
	// the given format, and returns the downloaded entries. Callers filter
	// the metadata pass down to what still needs fetching.
	Download(ctx context.Context, entries []Entry, dir string, format string) ([]Entry, error)

	// Name returns the name of the source (e.g. "yt-dlp").
	Name() string
}

// Entry represents a single playlist item from a source.
type Entry struct {
	VideoID       string
	Title         string
	Description   string
	WebpageURL    string
	UploadDate    string // YYYYMMDD, may be empty
	Duration      int    // seconds
	AudioPath     string
	InfoPath      string
	ThumbnailPath string
	Thumbnails    []Thumbnail
}

// Thumbnail is a remote artwork candidate for an entry.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
