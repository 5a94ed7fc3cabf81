package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/shared"
)

// podcastPageLimit is the page size for podcast and episode listing requests.
const podcastPageLimit = 100

// Podcast is a podcast record from the Castopod admin API.
type Podcast struct {
	ID     int    `json:"id"`
	GUID   string `json:"guid"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// Episode is an episode record from the Castopod admin API.
type Episode struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// EpisodeUpload describes a new episode to create.
type EpisodeUpload struct {
	PodcastID   int
	Slug        string
	Title       string
	Description string
	AudioPath   string
	CoverPath   string // optional
	PublishAt   *time.Time
}

// CastopodClient talks to the Castopod admin API with basic auth. Podcast
// and episode-slug lookups are cached for the lifetime of the client, which
// matches one pipeline pass.
type CastopodClient struct {
	config     shared.CastopodConfig
	httpClient *http.Client
	logger     *log.Logger

	podcasts     map[string]Podcast // keyed by guid and handle
	episodeSlugs map[int]map[string]struct{}
}

// NewCastopodClient creates a client for the configured Castopod instance.
func NewCastopodClient(config shared.CastopodConfig, logger *log.Logger) *CastopodClient {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	if !config.VerifySSL {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &CastopodClient{
		config:       config,
		httpClient:   client,
		logger:       shared.WithLogger(logger, "component", "castopod"),
		podcasts:     map[string]Podcast{},
		episodeSlugs: map[int]map[string]struct{}{},
	}
}

// ResolvePodcastID finds the podcast matching the playlist's linkage, trying
// the uuid first and falling back to the handle. Returns 0 when no podcast
// matches.
func (c *CastopodClient) ResolvePodcastID(ctx context.Context, castopodUUID, castopodSlug string) (int, error) {
	if err := c.fetchPodcasts(ctx); err != nil {
		return 0, err
	}
	if castopodUUID != "" {
		if podcast, ok := c.podcasts[castopodUUID]; ok {
			return podcast.ID, nil
		}
	}
	if castopodSlug != "" {
		if podcast, ok := c.podcasts[castopodSlug]; ok {
			return podcast.ID, nil
		}
	}
	return 0, nil
}

func (c *CastopodClient) fetchPodcasts(ctx context.Context) error {
	if len(c.podcasts) > 0 {
		return nil
	}
	var podcasts []Podcast
	params := url.Values{"limit": {"200"}}
	if err := c.getJSON(ctx, "/podcasts", params, &podcasts); err != nil {
		return err
	}
	for _, podcast := range podcasts {
		if podcast.GUID != "" {
			c.podcasts[podcast.GUID] = podcast
		}
		if podcast.Handle != "" {
			if _, exists := c.podcasts[podcast.Handle]; !exists {
				c.podcasts[podcast.Handle] = podcast
			}
		}
	}
	return nil
}

// EpisodeSlugs returns the set of episode slugs already present on the
// podcast, paging through the episode listing on first use.
func (c *CastopodClient) EpisodeSlugs(ctx context.Context, podcastID int) (map[string]struct{}, error) {
	cached, err := c.loadEpisodeSlugs(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	slugs := make(map[string]struct{}, len(cached))
	for slug := range cached {
		slugs[slug] = struct{}{}
	}
	return slugs, nil
}

// HasEpisode reports whether the podcast already has an episode with the slug.
func (c *CastopodClient) HasEpisode(ctx context.Context, podcastID int, slug string) (bool, error) {
	slugs, err := c.loadEpisodeSlugs(ctx, podcastID)
	if err != nil {
		return false, err
	}
	_, ok := slugs[slug]
	return ok, nil
}

func (c *CastopodClient) loadEpisodeSlugs(ctx context.Context, podcastID int) (map[string]struct{}, error) {
	if cached, ok := c.episodeSlugs[podcastID]; ok {
		return cached, nil
	}

	slugs := map[string]struct{}{}
	offset := 0
	for {
		params := url.Values{
			"podcastIds": {strconv.Itoa(podcastID)},
			"limit":      {strconv.Itoa(podcastPageLimit)},
			"offset":     {strconv.Itoa(offset)},
		}
		var page []Episode
		if err := c.getJSON(ctx, "/episodes", params, &page); err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, episode := range page {
			if episode.Slug != "" {
				slugs[episode.Slug] = struct{}{}
			}
		}
		if len(page) < podcastPageLimit {
			break
		}
		offset += podcastPageLimit
	}

	c.episodeSlugs[podcastID] = slugs
	return slugs, nil
}

// UploadEpisode creates the episode via multipart upload and publishes it.
// Returns nil without uploading when the slug already exists on the podcast.
func (c *CastopodClient) UploadEpisode(ctx context.Context, upload EpisodeUpload) (*Episode, error) {
	exists, err := c.HasEpisode(ctx, upload.PodcastID, upload.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	episode, err := c.createEpisode(ctx, upload)
	if err != nil {
		return nil, err
	}
	c.episodeSlugs[upload.PodcastID][upload.Slug] = struct{}{}

	if err := c.publishEpisode(ctx, episode.ID, upload.PublishAt); err != nil {
		return nil, err
	}
	return episode, nil
}

func (c *CastopodClient) createEpisode(ctx context.Context, upload EpisodeUpload) (*Episode, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"title":       upload.Title,
		"slug":        upload.Slug,
		"podcast_id":  strconv.Itoa(upload.PodcastID),
		"description": upload.Description,
		"created_by":  strconv.Itoa(c.config.UserID),
		"updated_by":  strconv.Itoa(c.config.UserID),
		"type":        c.config.EpisodeType,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}

	if err := attachFile(writer, "audio_file", upload.AudioPath); err != nil {
		return nil, err
	}
	if upload.CoverPath != "" {
		if fileExists(upload.CoverPath) {
			if err := attachFile(writer, "cover", upload.CoverPath); err != nil {
				return nil, err
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/episodes", nil, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var episode Episode
	if err := c.do(req, &episode); err != nil {
		return nil, err
	}
	return &episode, nil
}

// publishEpisode publishes with the configured method. A scheduled method
// without a publish time falls back to publishing now.
func (c *CastopodClient) publishEpisode(ctx context.Context, episodeID int, publishAt *time.Time) error {
	method := c.config.PublicationMethod
	if method == "" {
		method = "now"
	}

	form := url.Values{
		"publication_method": {method},
		"created_by":         {strconv.Itoa(c.config.UserID)},
		"client_timezone":    {c.clientTimezone()},
	}
	if method == "scheduled" {
		if publishAt != nil {
			form.Set("publication_datetime", publishAt.Format("2006-01-02 15:04:05"))
		} else {
			form.Set("publication_method", "now")
		}
	}

	path := fmt.Sprintf("/episodes/%d/publish", episodeID)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

func (c *CastopodClient) clientTimezone() string {
	if c.config.Timezone != "" {
		return c.config.Timezone
	}
	return "UTC"
}

func (c *CastopodClient) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	fullURL := c.config.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	return req, nil
}

func (c *CastopodClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *CastopodClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned %d: %s", shared.ErrAPIRequest, req.Method, req.URL.Path, resp.StatusCode, truncate(string(body), 200))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to attach %s: %w", field, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
