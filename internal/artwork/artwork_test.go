package artwork

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/evanheo/podwire/internal/services"
)

func writePNG(t *testing.T, path string, width, height int, fill color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func decodeJPEG(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artwork: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode artwork: %v", err)
	}
	return img
}

func TestCandidateURLs(t *testing.T) {
	t.Run("SortsByAreaAndDedupes", func(t *testing.T) {
		thumbnails := []services.Thumbnail{
			{URL: "small", Width: 120, Height: 90},
			{URL: "large", Width: 1280, Height: 720},
			{URL: "medium", Width: 640, Height: 480},
			{URL: "large", Width: 1280, Height: 720},
			{URL: "", Width: 9999, Height: 9999},
		}
		got := CandidateURLs("fallback", thumbnails)
		want := []string{"large", "medium", "small", "fallback"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("FallbackNotDuplicated", func(t *testing.T) {
		thumbnails := []services.Thumbnail{{URL: "only", Width: 100, Height: 100}}
		got := CandidateURLs("only", thumbnails)
		if !reflect.DeepEqual(got, []string{"only"}) {
			t.Errorf("expected single candidate, got %v", got)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := CandidateURLs("", nil); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestCreateSquareArtwork(t *testing.T) {
	t.Run("PadsWideImageToSquare", func(t *testing.T) {
		dir := t.TempDir()
		source := filepath.Join(dir, "thumb.png")
		writePNG(t, source, 160, 90, color.RGBA{R: 255, A: 255})

		gen := NewGenerator(color.Black)
		dest := filepath.Join(dir, "cover.jpg")
		got, err := gen.Create(dest, source, nil)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got != dest {
			t.Fatalf("expected %q, got %q", dest, got)
		}

		img := decodeJPEG(t, dest)
		bounds := img.Bounds()
		if bounds.Dx() != 160 || bounds.Dy() != 160 {
			t.Fatalf("expected 160x160 square, got %dx%d", bounds.Dx(), bounds.Dy())
		}

		// Content is vertically centered: rows 35..124 are red, the bands
		// above and below stay background black.
		r, _, _, _ := img.At(80, 80).RGBA()
		if r>>8 < 200 {
			t.Errorf("expected red content at center, got %v", img.At(80, 80))
		}
		r, g, b, _ := img.At(80, 10).RGBA()
		if r>>8 > 40 || g>>8 > 40 || b>>8 > 40 {
			t.Errorf("expected black padding at top, got %v", img.At(80, 10))
		}
		r, g, b, _ = img.At(80, 150).RGBA()
		if r>>8 > 40 || g>>8 > 40 || b>>8 > 40 {
			t.Errorf("expected black padding at bottom, got %v", img.At(80, 150))
		}
	})

	t.Run("TallImage", func(t *testing.T) {
		dir := t.TempDir()
		source := filepath.Join(dir, "tall.png")
		writePNG(t, source, 50, 200, color.RGBA{B: 255, A: 255})

		gen := NewGenerator(color.White)
		dest := filepath.Join(dir, "cover.jpg")
		if _, err := gen.Create(dest, source, nil); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		img := decodeJPEG(t, dest)
		if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 200 {
			t.Fatalf("expected 200x200 square, got %v", img.Bounds())
		}
		r, g, b, _ := img.At(5, 100).RGBA()
		if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
			t.Errorf("expected white padding at left, got %v", img.At(5, 100))
		}
	})

	t.Run("RemoteFallback", func(t *testing.T) {
		var buf bytes.Buffer
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode remote fixture: %v", err)
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/broken" {
				http.Error(w, "gone", http.StatusNotFound)
				return
			}
			w.Write(buf.Bytes())
		}))
		defer server.Close()

		gen := NewGenerator(nil)
		dest := filepath.Join(t.TempDir(), "cover.jpg")
		got, err := gen.Create(dest, "", []string{server.URL + "/broken", server.URL + "/ok"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got == "" {
			t.Fatal("expected artwork from remote candidate")
		}
	})

	t.Run("NoUsableSource", func(t *testing.T) {
		gen := NewGenerator(nil)
		dest := filepath.Join(t.TempDir(), "cover.jpg")
		got, err := gen.Create(dest, filepath.Join(t.TempDir(), "missing.png"), nil)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
		if _, err := os.Stat(dest); !os.IsNotExist(err) {
			t.Error("expected no artwork file to be written")
		}
	})
}
