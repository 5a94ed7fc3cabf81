package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/shared"
)

// ProcessAll runs the configuration-driven pass: every active playlist,
// grouped under its channel's directory, each with its own Run. Failures are
// recorded per playlist and the pass continues.
func (o *Orchestrator) ProcessAll(ctx context.Context, prog chan<- ProgressUpdate) ([]*Result, error) {
	playlists, err := o.playlists.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load active playlists: %w", err)
	}
	if len(playlists) == 0 {
		o.logger.Info("no active playlists configured, nothing to do")
		return nil, nil
	}

	channels := map[string]*models.Channel{}
	results := make([]*Result, 0, len(playlists))
	for _, playlist := range playlists {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		channel, ok := channels[playlist.ChannelID]
		if !ok {
			channel, err = o.channels.Get(playlist.ChannelID)
			if err != nil {
				o.logger.Error("failed to load channel", "channel_id", playlist.ChannelID, "error", err)
				continue
			}
			channels[playlist.ChannelID] = channel
		}

		result := o.ProcessPlaylist(ctx, channel, playlist, nil, prog)
		if result.Err != nil {
			o.logger.Error("playlist processing failed", "playlist", playlist.DisplayName(), "error", result.Err)
		}
		results = append(results, result)
	}
	return results, nil
}

// DrainQueue processes queued jobs one at a time through the orchestrator,
// each with its own tracker and cancellation watcher. A cancelled or failed
// job never stops the drain; the terminal state lands on that job alone.
// Returns the number of jobs taken off the queue.
func (o *Orchestrator) DrainQueue(ctx context.Context, prog chan<- ProgressUpdate) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		job, err := o.jobs.OldestQueued()
		if err != nil {
			return processed, fmt.Errorf("failed to check job queue: %w", err)
		}
		if job == nil {
			return processed, nil
		}

		o.processJob(ctx, job, prog)
		processed++
	}
}

func (o *Orchestrator) processJob(ctx context.Context, job *models.Job, prog chan<- ProgressUpdate) {
	logger := shared.WithLogger(o.logger, "job_id", job.ID)

	playlist, err := o.playlists.Get(job.PlaylistID)
	if err != nil {
		logger.Error("failed to load playlist for job", "playlist_id", job.PlaylistID, "error", err)
		o.failJob(job.ID, fmt.Sprintf("playlist %s unavailable: %v", job.PlaylistID, err))
		return
	}
	channel, err := o.channels.Get(playlist.ChannelID)
	if err != nil {
		logger.Error("failed to load channel for job", "channel_id", playlist.ChannelID, "error", err)
		o.failJob(job.ID, fmt.Sprintf("channel %s unavailable: %v", playlist.ChannelID, err))
		return
	}

	tracker := NewJobTracker(o.jobs, job, o.logger)
	tracker.StartWatcher()
	defer tracker.StopWatcher()

	result := o.ProcessPlaylist(ctx, channel, playlist, tracker, prog)
	switch {
	case result.Err == nil:
		logger.Info("job finished", "uploaded", result.Uploaded, "skipped", result.Skipped)
	case errors.Is(result.Err, shared.ErrJobCancelled):
		logger.Info("job cancelled")
	default:
		logger.Error("job failed", "error", result.Err)
	}
}

func (o *Orchestrator) failJob(id, message string) {
	status := models.JobFailed
	if err := o.jobs.Patch(id, repositories.JobPatch{Status: &status, ProgressMessage: &message}); err != nil {
		o.logger.Error("failed to mark job failed", "job_id", id, "error", err)
	}
}
