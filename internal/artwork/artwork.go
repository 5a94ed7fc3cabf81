// Package artwork builds square podcast cover images from playlist
// thumbnails. Podcast hosts require square artwork; YouTube thumbnails are
// 16:9, so they get padded onto a square canvas instead of cropped.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/evanheo/podwire/internal/services"
)

// jpegQuality matches the quality podcast hosts expect for cover art.
const jpegQuality = 95

// Generator turns thumbnail candidates into square JPEG artwork files.
type Generator struct {
	httpClient *http.Client
	background color.Color
}

// NewGenerator creates a Generator with the given background fill for the
// padded regions. A nil background defaults to black.
func NewGenerator(background color.Color) *Generator {
	if background == nil {
		background = color.Black
	}
	return &Generator{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		background: background,
	}
}

// CandidateURLs orders remote thumbnail candidates by resolution (largest
// area first), removing duplicates. The bare fallback URL, when present and
// not already listed, goes last.
func CandidateURLs(fallbackURL string, thumbnails []services.Thumbnail) []string {
	scored := make([]services.Thumbnail, len(thumbnails))
	copy(scored, thumbnails)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Width*scored[i].Height > scored[j].Width*scored[j].Height
	})

	seen := map[string]struct{}{}
	var urls []string
	for _, thumb := range scored {
		if thumb.URL == "" {
			continue
		}
		if _, dup := seen[thumb.URL]; dup {
			continue
		}
		seen[thumb.URL] = struct{}{}
		urls = append(urls, thumb.URL)
	}
	if fallbackURL != "" {
		if _, dup := seen[fallbackURL]; !dup {
			urls = append(urls, fallbackURL)
		}
	}
	return urls
}

// Create writes square JPEG artwork to destPath. The local source file is
// preferred; remote candidates are tried in order when it is missing or
// unreadable. Returns the written path, or an empty string when no usable
// image could be loaded.
func (g *Generator) Create(destPath, localSource string, remoteCandidates []string) (string, error) {
	data := g.loadImageBytes(localSource, remoteCandidates)
	if data == nil {
		return "", nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode artwork source: %w", err)
	}

	square := padToSquare(src, g.background)

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create artwork directory: %w", err)
		}
	}
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create artwork file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, square, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode artwork: %w", err)
	}
	return destPath, nil
}

func (g *Generator) loadImageBytes(localSource string, remoteCandidates []string) []byte {
	if localSource != "" {
		if data, err := os.ReadFile(localSource); err == nil {
			return data
		}
	}
	for _, url := range remoteCandidates {
		resp, err := g.httpClient.Get(url)
		if err != nil {
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			continue
		}
		data := make([]byte, 0, resp.ContentLength)
		buf := bytes.NewBuffer(data)
		_, err = buf.ReadFrom(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		return buf.Bytes()
	}
	return nil
}

// padToSquare centers the image on a square canvas of side max(w, h) filled
// with the background color.
func padToSquare(src image.Image, background color.Color) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	size := width
	if height > size {
		size = height
	}

	square := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(square, square.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	offset := image.Pt((size-width)/2, (size-height)/2)
	target := image.Rectangle{Min: offset, Max: offset.Add(image.Pt(width, height))}
	draw.Draw(square, target, src, bounds.Min, draw.Src)
	return square
}
