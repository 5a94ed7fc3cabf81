package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// YTDLPSource enumerates and downloads playlists by shelling out to yt-dlp.
type YTDLPSource struct {
	binary string
	logger *log.Logger

	// run executes the binary and returns its stdout. Swapped in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYTDLPSource creates a source backed by the yt-dlp binary. An empty
// binary defaults to "yt-dlp" resolved from PATH.
func NewYTDLPSource(binary string, logger *log.Logger) *YTDLPSource {
	if binary == "" {
		binary = "yt-dlp"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YTDLPSource{
		binary: binary,
		logger: shared.WithLogger(logger, "component", "yt-dlp"),
		run:    runCommand,
	}
}

// Name returns the source name.
func (s *YTDLPSource) Name() string {
	return "yt-dlp"
}

// Metadata enumerates the playlist without downloading media.
func (s *YTDLPSource) Metadata(ctx context.Context, playlistID string) ([]Entry, error) {
	url := models.PlaylistURL(playlistID)
	args := []string{
		"--dump-json",
		"--skip-download",
		"--ignore-errors",
		"--no-warnings",
		url,
	}

	out, err := s.run(ctx, s.binary, args...)
	entries, parseErr := parseEntryLines(out, "", "")
	if err != nil {
		if len(entries) == 0 {
			return nil, fmt.Errorf("yt-dlp metadata failed for %s: %w", url, err)
		}
		// Partial output with --ignore-errors still exits non-zero.
		s.logger.Warn("yt-dlp reported errors during metadata pass", "url", url, "error", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return entries, nil
}

// Download fetches the given entries into dir, extracting audio in the given
// format and writing info-json and thumbnail sidecars per entry. Each entry
// is addressed by its own video URL so entries filtered out of the metadata
// pass are never fetched.
func (s *YTDLPSource) Download(ctx context.Context, entries []Entry, dir string, format string) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if format == "" {
		format = "mp3"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	args := []string{
		"--print-json",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", format,
		"--audio-quality", "0",
		"--write-info-json",
		"--write-thumbnail",
		"--ignore-errors",
		"--no-warnings",
		"--output", filepath.Join(dir, "%(upload_date)s_%(title)s.%(ext)s"),
	}
	for _, entry := range entries {
		url := entry.WebpageURL
		if url == "" {
			url = models.WatchURL(entry.VideoID)
		}
		args = append(args, url)
	}

	out, err := s.run(ctx, s.binary, args...)
	downloaded, parseErr := parseEntryLines(out, dir, format)
	if err != nil {
		if len(downloaded) == 0 {
			return nil, fmt.Errorf("yt-dlp download failed: %w", err)
		}
		s.logger.Warn("yt-dlp reported errors during download", "error", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return downloaded, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// ytdlpInfo is the subset of yt-dlp's per-entry JSON the pipeline uses.
type ytdlpInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	WebpageURL  string      `json:"webpage_url"`
	UploadDate  string      `json:"upload_date"`
	Duration    float64     `json:"duration"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
	Thumbnail   string      `json:"thumbnail"`
	Filename    string      `json:"_filename"`
}

// parseEntryLines decodes yt-dlp's newline-delimited JSON output. When dir is
// non-empty the entry's local file paths are resolved against the downloaded
// filename reported by yt-dlp.
func parseEntryLines(out []byte, dir string, format string) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var info ytdlpInfo
		if err := json.Unmarshal(line, &info); err != nil {
			return entries, fmt.Errorf("failed to parse yt-dlp output: %w", err)
		}
		entry := Entry{
			VideoID:     info.ID,
			Title:       info.Title,
			Description: info.Description,
			WebpageURL:  info.WebpageURL,
			UploadDate:  info.UploadDate,
			Duration:    int(info.Duration),
			Thumbnails:  info.Thumbnails,
		}
		if info.Thumbnail != "" {
			entry.Thumbnails = append(entry.Thumbnails, Thumbnail{URL: info.Thumbnail})
		}
		if dir != "" && info.Filename != "" {
			resolveEntryPaths(&entry, info.Filename, format)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read yt-dlp output: %w", err)
	}
	return entries, nil
}

// resolveEntryPaths derives the audio, info-json, and thumbnail sidecar paths
// from the filename yt-dlp reports for a downloaded entry.
func resolveEntryPaths(entry *Entry, filename string, format string) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	entry.AudioPath = base + "." + format

	infoPath := base + ".info.json"
	if fileExists(infoPath) {
		entry.InfoPath = infoPath
	}
	for _, ext := range []string{".jpg", ".webp", ".png"} {
		if candidate := base + ext; fileExists(candidate) {
			entry.ThumbnailPath = candidate
			break
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
