package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/evanheo/podwire/internal/shared"
)

func newTestClient(t *testing.T, handler http.Handler) (*CastopodClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	config := shared.CastopodConfig{
		BaseURL:           server.URL,
		Username:          "admin",
		Password:          "secret",
		UserID:            7,
		Timezone:          "Asia/Seoul",
		PublicationMethod: "now",
		EpisodeType:       "full",
		VerifySSL:         true,
	}
	return NewCastopodClient(config, shared.NewLogger(os.Stderr)), server
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
}

func TestCastopodResolvePodcastID(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/podcasts", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, []Podcast{
			{ID: 1, GUID: "guid-1", Handle: "morning-show", Title: "Morning Show"},
			{ID: 2, GUID: "guid-2", Handle: "tech-talk", Title: "Tech Talk"},
		})
	})
	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("ByUUID", func(t *testing.T) {
		id, err := client.ResolvePodcastID(ctx, "guid-2", "")
		if err != nil {
			t.Fatalf("ResolvePodcastID failed: %v", err)
		}
		if id != 2 {
			t.Errorf("expected podcast 2, got %d", id)
		}
	})

	t.Run("ByHandleFallback", func(t *testing.T) {
		id, err := client.ResolvePodcastID(ctx, "missing-guid", "morning-show")
		if err != nil {
			t.Fatalf("ResolvePodcastID failed: %v", err)
		}
		if id != 1 {
			t.Errorf("expected podcast 1, got %d", id)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		id, err := client.ResolvePodcastID(ctx, "", "ghost")
		if err != nil {
			t.Fatalf("ResolvePodcastID failed: %v", err)
		}
		if id != 0 {
			t.Errorf("expected 0 for unknown podcast, got %d", id)
		}
	})

	if calls != 1 {
		t.Errorf("expected podcast listing to be cached, got %d calls", calls)
	}
}

func TestCastopodEpisodeSlugs(t *testing.T) {
	listCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/episodes", func(w http.ResponseWriter, r *http.Request) {
		listCalls++
		if r.URL.Query().Get("podcastIds") != "5" {
			t.Errorf("expected podcastIds=5, got %q", r.URL.Query().Get("podcastIds"))
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		// Two full pages then a short one to exercise pagination.
		switch offset {
		case 0, podcastPageLimit:
			page := make([]Episode, podcastPageLimit)
			for i := range page {
				page[i] = Episode{ID: offset + i, Slug: fmt.Sprintf("ep-%d", offset+i)}
			}
			writeJSON(t, w, page)
		default:
			writeJSON(t, w, []Episode{{ID: 999, Slug: "ep-last"}})
		}
	})
	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	slugs, err := client.EpisodeSlugs(ctx, 5)
	if err != nil {
		t.Fatalf("EpisodeSlugs failed: %v", err)
	}
	if len(slugs) != 2*podcastPageLimit+1 {
		t.Errorf("expected %d slugs, got %d", 2*podcastPageLimit+1, len(slugs))
	}
	if _, ok := slugs["ep-last"]; !ok {
		t.Error("expected slug from final page")
	}
	if listCalls != 3 {
		t.Errorf("expected 3 pages, got %d requests", listCalls)
	}

	if _, err := client.EpisodeSlugs(ctx, 5); err != nil {
		t.Fatalf("cached EpisodeSlugs failed: %v", err)
	}
	if listCalls != 3 {
		t.Errorf("expected cache hit, got %d requests", listCalls)
	}
}

func TestCastopodUploadEpisode(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "0001_episode.mp3")
	if err := os.WriteFile(audioPath, []byte("audio-bytes"), 0644); err != nil {
		t.Fatalf("failed to write audio fixture: %v", err)
	}

	t.Run("CreatesAndPublishes", func(t *testing.T) {
		var created, published bool
		mux := http.NewServeMux()
		mux.HandleFunc("/episodes", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				writeJSON(t, w, []Episode{{ID: 1, Slug: "existing"}})
				return
			}
			created = true
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("expected multipart form: %v", err)
			}
			if got := r.FormValue("slug"); got != "new-episode" {
				t.Errorf("expected slug new-episode, got %q", got)
			}
			if got := r.FormValue("podcast_id"); got != "5" {
				t.Errorf("expected podcast_id 5, got %q", got)
			}
			if got := r.FormValue("created_by"); got != "7" {
				t.Errorf("expected created_by 7, got %q", got)
			}
			if got := r.FormValue("type"); got != "full" {
				t.Errorf("expected type full, got %q", got)
			}
			if _, _, err := r.FormFile("audio_file"); err != nil {
				t.Errorf("expected audio_file part: %v", err)
			}
			writeJSON(t, w, Episode{ID: 42, Slug: "new-episode"})
		})
		mux.HandleFunc("/episodes/42/publish", func(w http.ResponseWriter, r *http.Request) {
			published = true
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse publish form: %v", err)
			}
			if got := r.FormValue("publication_method"); got != "now" {
				t.Errorf("expected publication_method now, got %q", got)
			}
			if got := r.FormValue("client_timezone"); got != "Asia/Seoul" {
				t.Errorf("expected client_timezone Asia/Seoul, got %q", got)
			}
			writeJSON(t, w, map[string]any{"ok": true})
		})
		client, _ := newTestClient(t, mux)

		episode, err := client.UploadEpisode(context.Background(), EpisodeUpload{
			PodcastID: 5,
			Slug:      "new-episode",
			Title:     "New Episode",
			AudioPath: audioPath,
		})
		if err != nil {
			t.Fatalf("UploadEpisode failed: %v", err)
		}
		if episode == nil || episode.ID != 42 {
			t.Fatalf("expected created episode 42, got %+v", episode)
		}
		if !created || !published {
			t.Errorf("expected create and publish calls, got created=%v published=%v", created, published)
		}

		exists, err := client.HasEpisode(context.Background(), 5, "new-episode")
		if err != nil {
			t.Fatalf("HasEpisode failed: %v", err)
		}
		if !exists {
			t.Error("expected uploaded slug to join the cache")
		}
	})

	t.Run("SkipsExistingSlug", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/episodes", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Error("unexpected create for existing slug")
			}
			writeJSON(t, w, []Episode{{ID: 1, Slug: "taken"}})
		})
		client, _ := newTestClient(t, mux)

		episode, err := client.UploadEpisode(context.Background(), EpisodeUpload{
			PodcastID: 5,
			Slug:      "taken",
			AudioPath: audioPath,
		})
		if err != nil {
			t.Fatalf("UploadEpisode failed: %v", err)
		}
		if episode != nil {
			t.Errorf("expected nil for existing slug, got %+v", episode)
		}
	})

	t.Run("ScheduledWithoutDatetimeFallsBack", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/episodes", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				writeJSON(t, w, []Episode{})
				return
			}
			writeJSON(t, w, Episode{ID: 9, Slug: "sched"})
		})
		var method, datetime string
		mux.HandleFunc("/episodes/9/publish", func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			method = r.FormValue("publication_method")
			datetime = r.FormValue("publication_datetime")
			writeJSON(t, w, map[string]any{"ok": true})
		})
		client, _ := newTestClient(t, mux)
		client.config.PublicationMethod = "scheduled"

		if _, err := client.UploadEpisode(context.Background(), EpisodeUpload{
			PodcastID: 5,
			Slug:      "sched",
			AudioPath: audioPath,
		}); err != nil {
			t.Fatalf("UploadEpisode failed: %v", err)
		}
		if method != "now" {
			t.Errorf("expected fallback to now, got %q", method)
		}
		if datetime != "" {
			t.Errorf("expected no publication_datetime, got %q", datetime)
		}
	})

	t.Run("ScheduledWithDatetime", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/episodes", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				writeJSON(t, w, []Episode{})
				return
			}
			writeJSON(t, w, Episode{ID: 10, Slug: "sched2"})
		})
		var method, datetime string
		mux.HandleFunc("/episodes/10/publish", func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			method = r.FormValue("publication_method")
			datetime = r.FormValue("publication_datetime")
			writeJSON(t, w, map[string]any{"ok": true})
		})
		client, _ := newTestClient(t, mux)
		client.config.PublicationMethod = "scheduled"

		publishAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		if _, err := client.UploadEpisode(context.Background(), EpisodeUpload{
			PodcastID: 5,
			Slug:      "sched2",
			AudioPath: audioPath,
			PublishAt: &publishAt,
		}); err != nil {
			t.Fatalf("UploadEpisode failed: %v", err)
		}
		if method != "scheduled" {
			t.Errorf("expected scheduled method, got %q", method)
		}
		if datetime != "2026-03-01 09:00:00" {
			t.Errorf("expected formatted datetime, got %q", datetime)
		}
	})
}

func TestCastopodErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/podcasts", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.ResolvePodcastID(context.Background(), "guid", "")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
