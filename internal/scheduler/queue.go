package scheduler

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/shared"
)

// QueueRunner dispatches the oldest queued job to the pipeline whenever the
// pipeline is idle. Jobs are processed one at a time; the pipeline process
// claims the job itself, so dispatch only means starting the process.
type QueueRunner struct {
	jobs     *repositories.JobRepository
	trigger  PipelineTrigger
	logger   *log.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewQueueRunner creates a QueueRunner ticking at the given interval.
func NewQueueRunner(jobs *repositories.JobRepository, trigger PipelineTrigger, interval time.Duration, logger *log.Logger) *QueueRunner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &QueueRunner{
		jobs:     jobs,
		trigger:  trigger,
		logger:   shared.WithLogger(logger, "component", "queue-runner"),
		interval: interval,
	}
}

// Start launches the dispatch loop. Calling Start on a running runner is a
// no-op.
func (r *QueueRunner) Start() {
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop()
	r.logger.Info("queue runner started", "interval", r.interval)
}

// Stop signals the loop to exit and waits for it.
func (r *QueueRunner) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
	r.logger.Info("queue runner stopped")
}

func (r *QueueRunner) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick dispatches at most one queued job.
func (r *QueueRunner) Tick() {
	if r.trigger.Status().Running {
		return
	}

	job, err := r.jobs.OldestQueued()
	if err != nil {
		r.logger.Error("failed to check job queue", "error", err)
		return
	}
	if job == nil {
		return
	}

	if err := r.trigger.Trigger(); err != nil {
		if errors.Is(err, shared.ErrPipelineBusy) {
			r.logger.Debug("pipeline became busy before dispatch", "job_id", job.ID)
		} else {
			r.logger.Warn("failed to dispatch queued job", "job_id", job.ID, "error", err)
		}
		return
	}
	r.logger.Info("dispatched pipeline for queued job", "job_id", job.ID, "playlist_id", job.PlaylistID)
}
