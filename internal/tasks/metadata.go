package tasks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/services"
)

// playlistMetadata is the schema of metadata/playlist.json, consumed by
// downstream tooling and kept alongside the downloaded files.
type playlistMetadata struct {
	Channel     channelMetadata  `json:"channel"`
	Playlist    playlistSummary  `json:"playlist"`
	Episodes    []episodeSummary `json:"episodes"`
	GeneratedAt time.Time        `json:"generated_at"`
}

type channelMetadata struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type playlistSummary struct {
	ID                string `json:"id"`
	YouTubePlaylistID string `json:"youtube_playlist_id"`
	Title             string `json:"title,omitempty"`
}

type episodeSummary struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	WebpageURL  string `json:"webpage_url,omitempty"`
	UploadDate  string `json:"upload_date,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	AudioFile   string `json:"audio_file,omitempty"`
	InfoJSON    string `json:"info_json,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// writePlaylistMetadata writes metadata/playlist.json under the playlist
// directory, with episode file paths relative to that directory.
func writePlaylistMetadata(playlistDir string, channel *models.Channel, playlist *models.Playlist, entries []services.Entry) error {
	metadataDir := filepath.Join(playlistDir, "metadata")
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	payload := playlistMetadata{
		Playlist: playlistSummary{
			ID:                playlist.ID,
			YouTubePlaylistID: playlist.YouTubeID,
			Title:             playlist.Title,
		},
		Episodes:    make([]episodeSummary, 0, len(entries)),
		GeneratedAt: time.Now().UTC(),
	}
	if channel != nil {
		payload.Channel = channelMetadata{
			ID:          channel.ID,
			Slug:        channel.Slug,
			Title:       channel.Title,
			Description: channel.Description,
		}
	}

	for _, entry := range entries {
		payload.Episodes = append(payload.Episodes, episodeSummary{
			VideoID:     entry.VideoID,
			Title:       entry.Title,
			Description: entry.Description,
			WebpageURL:  entry.WebpageURL,
			UploadDate:  entry.UploadDate,
			Duration:    entry.Duration,
			AudioFile:   relativeTo(playlistDir, entry.AudioPath),
			InfoJSON:    relativeTo(playlistDir, entry.InfoPath),
			Thumbnail:   relativeTo(playlistDir, entry.ThumbnailPath),
		})
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode playlist metadata: %w", err)
	}
	path := filepath.Join(metadataDir, "playlist.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write playlist metadata: %w", err)
	}
	return nil
}

// relativeTo rewrites path relative to base when the file exists; missing
// files keep their original path for diagnostics.
func relativeTo(base, path string) string {
	if path == "" {
		return ""
	}
	if !fileExists(path) {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
