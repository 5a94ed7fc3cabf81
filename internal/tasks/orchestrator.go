// Package tasks implements playlist processing: the per-playlist pipeline
// (download, metadata, artwork, optional publish) and the job tracker that
// carries progress and cooperative cancellation.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/artwork"
	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/services"
	"github.com/evanheo/podwire/internal/shared"
	"golang.org/x/time/rate"
)

// PodcastHost is the slice of the podcast-host client the orchestrator needs.
type PodcastHost interface {
	ResolvePodcastID(ctx context.Context, castopodUUID, castopodSlug string) (int, error)
	EpisodeSlugs(ctx context.Context, podcastID int) (map[string]struct{}, error)
	HasEpisode(ctx context.Context, podcastID int, slug string) (bool, error)
	UploadEpisode(ctx context.Context, upload services.EpisodeUpload) (*services.Episode, error)
}

// Options configures one orchestrator pass.
type Options struct {
	DownloadRoot string  // base directory for downloads (default: downloads)
	AudioFormat  string  // extracted audio format (default: mp3)
	DryRun       bool    // enumerate without downloading or uploading
	UploadRate   float64 // episode uploads per second (default: 1)
}

// Orchestrator executes the full pipeline for playlists: metadata pass,
// download, metadata file, square artwork, and optional episode publishing.
type Orchestrator struct {
	source    services.Source
	host      PodcastHost // nil disables uploads
	channels  *repositories.ChannelRepository
	playlists *repositories.PlaylistRepository
	runs      *repositories.RunRepository
	jobs      *repositories.JobRepository
	artwork   *artwork.Generator
	logger    *log.Logger
	opts      Options
}

// NewOrchestrator creates an orchestrator. A nil host disables the upload
// phase entirely; downloads and artwork still run.
func NewOrchestrator(
	source services.Source,
	host PodcastHost,
	channels *repositories.ChannelRepository,
	playlists *repositories.PlaylistRepository,
	runs *repositories.RunRepository,
	jobs *repositories.JobRepository,
	gen *artwork.Generator,
	opts Options,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.DownloadRoot == "" {
		opts.DownloadRoot = "downloads"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	if opts.UploadRate <= 0 {
		opts.UploadRate = 1
	}
	if gen == nil {
		gen = artwork.NewGenerator(nil)
	}
	return &Orchestrator{
		source:    source,
		host:      host,
		channels:  channels,
		playlists: playlists,
		runs:      runs,
		jobs:      jobs,
		artwork:   gen,
		logger:    shared.WithLogger(logger, "component", "orchestrator"),
		opts:      opts,
	}
}

// Result summarizes one processed playlist.
type Result struct {
	Playlist   *models.Playlist
	Run        *models.Run
	Entries    int // entries enumerated by the metadata pass
	Skipped    int // entries whose slug already existed remotely
	Downloaded int
	Uploaded   int
	DryRun     bool
	Err        error
}

// ProcessPlaylist runs the full pipeline for one playlist, reporting progress
// through a Run record and, when a tracker is present, the tracked Job.
// Cancellation surfaces as [shared.ErrJobCancelled]; both the Run and the Job
// finalize to cancelled.
func (o *Orchestrator) ProcessPlaylist(
	ctx context.Context,
	channel *models.Channel,
	playlist *models.Playlist,
	tracker *JobTracker,
	prog chan<- ProgressUpdate,
) *Result {
	result := &Result{Playlist: playlist, DryRun: o.opts.DryRun}
	logger := shared.WithLogger(o.logger, "playlist", playlist.DisplayName())

	run := &models.Run{
		PlaylistID:  playlist.ID,
		Status:      models.RunInProgress,
		CurrentTask: "downloading",
		Message:     fmt.Sprintf("Starting download for %s", playlist.DisplayName()),
	}
	if err := o.runs.Create(run); err != nil {
		result.Err = err
		return result
	}
	result.Run = run

	// A cancellation requested while the job sat queued must not be
	// clobbered by the in-progress transition.
	if err := ensureActive(tracker); err != nil {
		result.Err = err
		o.finalize(run, tracker, result, logger)
		return result
	}
	if tracker != nil {
		status := models.JobInProgress
		task := "downloading"
		if err := tracker.Patch(repositories.JobPatch{Status: &status, CurrentTask: &task}); err != nil {
			logger.Warn("failed to mark job in progress", "error", err)
		}
	}

	err := o.process(ctx, channel, playlist, tracker, prog, run, result)
	result.Err = err
	o.finalize(run, tracker, result, logger)
	return result
}

func (o *Orchestrator) process(
	ctx context.Context,
	channel *models.Channel,
	playlist *models.Playlist,
	tracker *JobTracker,
	prog chan<- ProgressUpdate,
	run *models.Run,
	result *Result,
) error {
	podcastID, err := o.resolvePodcast(ctx, playlist, tracker, prog)
	if err != nil {
		return err
	}

	var existing map[string]struct{}
	if podcastID > 0 {
		existing, err = o.host.EpisodeSlugs(ctx, podcastID)
		if err != nil {
			return err
		}
	}

	if err := ensureActive(tracker); err != nil {
		return err
	}

	sendProgress(prog, ProgressUpdate{Phase: FetchMetadata, Message: "Enumerating playlist entries"})
	entries, err := o.source.Metadata(ctx, playlist.YouTubeID)
	if err != nil {
		return err
	}
	result.Entries = len(entries)

	var candidates []services.Entry
	for _, entry := range entries {
		if _, skip := existing[episodeSlug(entry)]; skip {
			result.Skipped++
			continue
		}
		candidates = append(candidates, entry)
	}

	total := len(candidates)
	o.updateProgress(run, tracker, 0, total, "downloading", fmt.Sprintf("%d new entries of %d", total, len(entries)))

	if err := ensureActive(tracker); err != nil {
		return err
	}

	playlistDir := o.playlistDir(channel, playlist)
	if !o.opts.DryRun && total > 0 {
		sendProgress(prog, downloadingUpdate(0, total, playlist.DisplayName()))
		// Only the remaining candidates are fetched; entries skipped by the
		// slug pre-filter never reach yt-dlp.
		downloaded, err := o.source.Download(ctx, candidates, playlistDir, o.opts.AudioFormat)
		if err != nil {
			return err
		}
		candidates = mergeDownloads(candidates, downloaded)
		result.Downloaded = countDownloaded(candidates)
	}

	sortEntries(candidates)

	sendProgress(prog, ProgressUpdate{Phase: WriteMetadata, Message: "Writing playlist metadata"})
	if !o.opts.DryRun {
		if err := writePlaylistMetadata(playlistDir, channel, playlist, candidates); err != nil {
			return err
		}
		o.generateArtwork(playlistDir, candidates, prog)
	}

	if err := ensureActive(tracker); err != nil {
		return err
	}

	if podcastID > 0 && !o.opts.DryRun {
		uploaded, err := o.uploadEpisodes(ctx, podcastID, playlistDir, candidates, run, tracker, prog)
		result.Uploaded = uploaded
		if err != nil {
			return err
		}
	}
	return nil
}

// resolvePodcast returns the destination podcast id, or 0 when uploads are
// disabled: no host configured, job opted out, or no linkage matched.
func (o *Orchestrator) resolvePodcast(ctx context.Context, playlist *models.Playlist, tracker *JobTracker, prog chan<- ProgressUpdate) (int, error) {
	if o.host == nil || !playlist.HasCastopodLink() {
		return 0, nil
	}
	if tracker != nil && !tracker.Job().ShouldUpload {
		return 0, nil
	}

	sendProgress(prog, ProgressUpdate{Phase: ResolvePodcast, Message: "Resolving destination podcast"})
	slug, uuid := playlist.CastopodSlug, playlist.CastopodUUID
	if tracker != nil {
		job := tracker.Job()
		if job.CastopodSlug != "" {
			slug = job.CastopodSlug
		}
		if job.CastopodUUID != "" {
			uuid = job.CastopodUUID
		}
	}

	podcastID, err := o.host.ResolvePodcastID(ctx, uuid, slug)
	if err != nil {
		return 0, err
	}
	if podcastID == 0 {
		o.logger.Warn("no podcast matches playlist linkage, uploads disabled", "slug", slug, "uuid", uuid)
	}
	return podcastID, nil
}

func (o *Orchestrator) uploadEpisodes(
	ctx context.Context,
	podcastID int,
	playlistDir string,
	entries []services.Entry,
	run *models.Run,
	tracker *JobTracker,
	prog chan<- ProgressUpdate,
) (int, error) {
	limiter := rate.NewLimiter(rate.Limit(o.opts.UploadRate), 1)
	uploaded := 0
	total := len(entries)

	for _, entry := range entries {
		if err := ensureActive(tracker); err != nil {
			return uploaded, err
		}
		if err := limiter.Wait(ctx); err != nil {
			return uploaded, err
		}

		slug := episodeSlug(entry)

		// The remote list can change mid-run; re-check right before upload.
		exists, err := o.host.HasEpisode(ctx, podcastID, slug)
		if err != nil {
			return uploaded, err
		}
		if exists {
			continue
		}

		cover := ""
		if entry.VideoID != "" {
			candidate := filepath.Join(playlistDir, "artwork", entry.VideoID+".jpg")
			if fileExists(candidate) {
				cover = candidate
			}
		}

		upload := services.EpisodeUpload{
			PodcastID:   podcastID,
			Slug:        slug,
			Title:       entry.Title,
			Description: entry.Description,
			AudioPath:   entry.AudioPath,
			CoverPath:   cover,
			PublishAt:   publishTime(entry),
		}
		if _, err := o.host.UploadEpisode(ctx, upload); err != nil {
			return uploaded, err
		}

		uploaded++
		sendProgress(prog, uploadingUpdate(uploaded, total, entry.Title))
		o.updateProgress(run, tracker, uploaded, total, "uploading", fmt.Sprintf("Uploaded %s", entry.Title))
	}
	return uploaded, nil
}

func (o *Orchestrator) generateArtwork(playlistDir string, entries []services.Entry, prog chan<- ProgressUpdate) {
	sendProgress(prog, ProgressUpdate{Phase: Artwork, Message: "Generating square artwork"})
	artworkDir := filepath.Join(playlistDir, "artwork")

	for i, entry := range entries {
		if entry.VideoID == "" {
			continue
		}
		dest := filepath.Join(artworkDir, entry.VideoID+".jpg")
		candidates := artwork.CandidateURLs("", entry.Thumbnails)
		if _, err := o.artwork.Create(dest, entry.ThumbnailPath, candidates); err != nil {
			o.logger.Warn("failed to build episode artwork", "video_id", entry.VideoID, "error", err)
		}
		// The first (oldest) entry's art doubles as the playlist cover.
		if i == 0 {
			if _, err := o.artwork.Create(filepath.Join(artworkDir, "cover.jpg"), entry.ThumbnailPath, candidates); err != nil {
				o.logger.Warn("failed to build playlist cover", "error", err)
			}
		}
	}
}

// finalize writes the terminal state: finished with a summary, cancelled on a
// cancellation signal, failed with the error text otherwise.
func (o *Orchestrator) finalize(run *models.Run, tracker *JobTracker, result *Result, logger *log.Logger) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	var jobStatus models.JobStatus
	switch {
	case result.Err == nil:
		run.Status = models.RunFinished
		verb := "Downloaded"
		if result.DryRun {
			verb = "Simulated"
		}
		run.Message = fmt.Sprintf("%s %d entries, uploaded %d, skipped %d existing", verb, result.Downloaded, result.Uploaded, result.Skipped)
		jobStatus = models.JobFinished
	case errors.Is(result.Err, shared.ErrJobCancelled):
		run.Status = models.RunCancelled
		run.Message = "Cancelled by request"
		jobStatus = models.JobCancelled
	default:
		run.Status = models.RunFailed
		run.Message = result.Err.Error()
		jobStatus = models.JobFailed
	}

	if err := o.runs.Update(run); err != nil {
		logger.Error("failed to finalize run", "run_id", run.ID, "error", err)
	}
	if tracker != nil {
		message := run.Message
		if err := tracker.Patch(repositories.JobPatch{Status: &jobStatus, ProgressMessage: &message}); err != nil {
			logger.Error("failed to finalize job", "error", err)
		}
	}
	logger.Info("playlist processing finished", "status", run.Status, "message", run.Message)
}

func (o *Orchestrator) updateProgress(run *models.Run, tracker *JobTracker, completed, total int, task, message string) {
	run.ProgressCompleted = completed
	run.ProgressTotal = total
	run.CurrentTask = task
	run.ProgressMessage = message
	if err := o.runs.Update(run); err != nil {
		o.logger.Warn("failed to update run progress", "run_id", run.ID, "error", err)
	}
	if tracker != nil {
		patch := repositories.JobPatch{
			ProgressCompleted: &completed,
			ProgressTotal:     &total,
			CurrentTask:       &task,
			ProgressMessage:   &message,
		}
		if err := tracker.Patch(patch); err != nil {
			o.logger.Warn("failed to update job progress", "error", err)
		}
	}
}

func (o *Orchestrator) playlistDir(channel *models.Channel, playlist *models.Playlist) string {
	name := playlist.Title
	if name == "" {
		name = playlist.YouTubeID
	}
	if channel != nil {
		return filepath.Join(o.opts.DownloadRoot, channel.Slug, name)
	}
	return filepath.Join(o.opts.DownloadRoot, name)
}

func ensureActive(tracker *JobTracker) error {
	if tracker == nil {
		return nil
	}
	return tracker.EnsureActive()
}

// episodeSlug derives the destination slug for an entry from its title.
func episodeSlug(entry services.Entry) string {
	return models.Slugify(entry.Title, "episode")
}

// publishTime derives a scheduled publication instant from the entry's
// upload date. Entries without a parseable date publish immediately.
func publishTime(entry services.Entry) *time.Time {
	if entry.UploadDate == "" {
		return nil
	}
	parsed, err := time.ParseInLocation("20060102", entry.UploadDate, time.UTC)
	if err != nil {
		return nil
	}
	return &parsed
}

// mergeDownloads overlays local file paths from the download pass onto the
// candidate entries, matched by video id.
func mergeDownloads(candidates []services.Entry, downloaded []services.Entry) []services.Entry {
	byID := make(map[string]services.Entry, len(downloaded))
	for _, entry := range downloaded {
		byID[entry.VideoID] = entry
	}
	merged := make([]services.Entry, 0, len(candidates))
	for _, entry := range candidates {
		if local, ok := byID[entry.VideoID]; ok {
			entry.AudioPath = local.AudioPath
			entry.InfoPath = local.InfoPath
			entry.ThumbnailPath = local.ThumbnailPath
			if len(local.Thumbnails) > 0 {
				entry.Thumbnails = local.Thumbnails
			}
		}
		merged = append(merged, entry)
	}
	return merged
}

// countDownloaded reports how many entries actually received a local audio
// file, so a partially failed download pass is not over-reported.
func countDownloaded(entries []services.Entry) int {
	n := 0
	for _, entry := range entries {
		if entry.AudioPath != "" {
			n++
		}
	}
	return n
}

// sortEntries orders episodes by upload date ascending so podcast feeds run
// oldest-first, tie-breaking by title then filename.
func sortEntries(entries []services.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UploadDate != entries[j].UploadDate {
			return entries[i].UploadDate < entries[j].UploadDate
		}
		if entries[i].Title != entries[j].Title {
			return entries[i].Title < entries[j].Title
		}
		return entries[i].AudioPath < entries[j].AudioPath
	})
}
