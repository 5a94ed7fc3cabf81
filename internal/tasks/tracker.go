package tasks

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/shared"
)

// JobTracker gives a worker a narrow view of one job's live status: partial
// updates that persist and refresh the in-memory copy, and a cooperative
// cancellation signal. The watcher goroutine only reads the job; the worker
// owning the tracker is the only writer.
type JobTracker struct {
	jobs   *repositories.JobRepository
	logger *log.Logger

	mu        sync.Mutex
	job       *models.Job
	cancelled bool

	watchInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// NewJobTracker creates a tracker for the given job.
func NewJobTracker(jobs *repositories.JobRepository, job *models.Job, logger *log.Logger) *JobTracker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &JobTracker{
		jobs:          jobs,
		logger:        shared.WithLogger(logger, "component", "job-tracker", "job_id", job.ID),
		job:           job,
		watchInterval: time.Second,
	}
}

// Job returns a copy of the tracked job's last known state.
func (t *JobTracker) Job() models.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.job
}

// Cancelled reports whether the cancellation signal has been observed.
func (t *JobTracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Patch persists a partial update to the job and refreshes the in-memory
// copy.
func (t *JobTracker) Patch(patch repositories.JobPatch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.jobs.Patch(t.job.ID, patch); err != nil {
		return err
	}
	job, err := t.jobs.Get(t.job.ID)
	if err != nil {
		return err
	}
	t.job = job
	return nil
}

// EnsureActive fails with [shared.ErrJobCancelled] once cancellation has been
// observed. The first observation re-reads the job; after the signal is set,
// calls fail immediately without a fresh read. Callers check this at safe
// points, before expensive sub-steps and once per processed episode.
func (t *JobTracker) EnsureActive() error {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return shared.ErrJobCancelled
	}
	id := t.job.ID
	t.mu.Unlock()

	job, err := t.jobs.Get(id)
	if err != nil {
		// A transient read failure is not a cancellation.
		t.logger.Warn("failed to refresh job status", "error", err)
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.job = job
	if job.Status == models.JobCancelling {
		t.cancelled = true
		return shared.ErrJobCancelled
	}
	return nil
}

// StartWatcher launches the cancellation poll loop. Starting a running
// watcher is a no-op.
func (t *JobTracker) StartWatcher() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.watch(t.stop, t.done)
}

// StopWatcher stops the poll loop and waits for it with a bounded join.
// Stopping an idle tracker is a no-op.
func (t *JobTracker) StopWatcher() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.logger.Warn("cancellation watcher did not stop in time")
	}
}

func (t *JobTracker) watch(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			id := t.job.ID
			t.mu.Unlock()

			job, err := t.jobs.Get(id)
			if err != nil {
				t.logger.Warn("watcher failed to read job", "error", err)
				continue
			}
			if job.Status == models.JobCancelling {
				t.mu.Lock()
				t.job = job
				t.cancelled = true
				t.mu.Unlock()
				t.logger.Info("cancellation requested")
				return
			}
		}
	}
}
