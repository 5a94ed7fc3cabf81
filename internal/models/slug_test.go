package models

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		input    string
		fallback string
		want     string
	}{
		{"My Channel!", "channel", "my-channel"},
		{"  Weekly_News  ", "channel", "weekly-news"},
		{"한국어", "channel", "channel"},
		{"---", "episode", "episode"},
		{"Ep. 42: The Answer", "episode", "ep-42-the-answer"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.input, tc.fallback); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestExtractPlaylistID(t *testing.T) {
	t.Run("BareID", func(t *testing.T) {
		id, err := ExtractPlaylistID("PLabc123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "PLabc123" {
			t.Errorf("expected PLabc123, got %s", id)
		}
	})

	t.Run("ListQueryParam", func(t *testing.T) {
		id, err := ExtractPlaylistID("https://www.youtube.com/watch?v=xyz&list=PLdef456")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "PLdef456" {
			t.Errorf("expected PLdef456, got %s", id)
		}
	})

	t.Run("PathSegmentFallback", func(t *testing.T) {
		id, err := ExtractPlaylistID("https://www.youtube.com/playlist/PLghi789")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "PLghi789" {
			t.Errorf("expected PLghi789, got %s", id)
		}
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		if _, err := ExtractPlaylistID("  "); err == nil {
			t.Error("expected error for empty input")
		}
	})

	t.Run("RejectsURLWithoutID", func(t *testing.T) {
		if _, err := ExtractPlaylistID("https://www.youtube.com/feed/library"); err == nil {
			t.Error("expected error for URL without playlist id")
		}
	})
}

func TestPlaylistURL(t *testing.T) {
	if got := PlaylistURL("PLabc"); got != "https://www.youtube.com/playlist?list=PLabc" {
		t.Errorf("unexpected URL: %s", got)
	}
	passthrough := "https://www.youtube.com/playlist?list=PLabc"
	if got := PlaylistURL(passthrough); got != passthrough {
		t.Errorf("expected passthrough, got %s", got)
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("abc123"); got != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("unexpected URL: %s", got)
	}
	passthrough := "https://www.youtube.com/watch?v=abc123"
	if got := WatchURL(passthrough); got != passthrough {
		t.Errorf("expected passthrough, got %s", got)
	}
}
