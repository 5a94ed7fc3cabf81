package models

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

	errEmptyPlaylistInput = errors.New("playlist identifier is required")
	errNoPlaylistID       = errors.New("could not extract playlist id from URL")
)

// Slugify derives a URL-safe slug from a title: lowercase, runs of
// non-alphanumerics collapsed to single dashes, trimmed. Falls back to the
// given default when nothing survives.
func Slugify(value, fallback string) string {
	slug := nonAlnumRe.ReplaceAllString(strings.ToLower(value), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallback
	}
	return slug
}

// playlistIDPrefixes are the id shapes YouTube uses for playlists.
var playlistIDPrefixes = []string{"PL", "UU", "OL", "LL"}

// ExtractPlaylistID accepts either a bare playlist identifier or a full
// playlist/watch URL and returns the identifier.
//
// For URLs the "list" query parameter wins; otherwise the last path segment
// that looks like a playlist id is used.
func ExtractPlaylistID(value string) (string, error) {
	input := strings.TrimSpace(value)
	if input == "" {
		return "", errEmptyPlaylistInput
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", errNoPlaylistID
	}
	if id := parsed.Query().Get("list"); id != "" {
		return id, nil
	}

	segments := strings.Split(parsed.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		segment := segments[i]
		for _, prefix := range playlistIDPrefixes {
			if strings.HasPrefix(segment, prefix) {
				return segment, nil
			}
		}
	}
	return "", errNoPlaylistID
}

// PlaylistURL builds the canonical playlist URL for a bare identifier,
// passing full URLs through untouched.
func PlaylistURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "https://www.youtube.com/playlist?list=" + trimmed
}

// WatchURL builds the canonical watch URL for a bare video identifier,
// passing full URLs through untouched.
func WatchURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "https://www.youtube.com/watch?v=" + trimmed
}
