// Package scheduler evaluates playlist schedules and dispatches queued jobs
// to the pipeline supervisor.
package scheduler

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/pipeline"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/shared"
)

// PipelineTrigger is the slice of the supervisor the runners need.
type PipelineTrigger interface {
	Trigger() error
	Status() pipeline.Status
}

// nextRunHorizonDays bounds the forward scan for a schedule's next run.
const nextRunHorizonDays = 14

// ScheduleRunner periodically checks active schedules and enqueues jobs for
// playlists whose run time has arrived.
type ScheduleRunner struct {
	db        *sql.DB
	schedules *repositories.ScheduleRepository
	jobs      *repositories.JobRepository
	trigger   PipelineTrigger
	logger    *log.Logger
	interval  time.Duration
	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
}

// NewScheduleRunner creates a ScheduleRunner ticking at the given interval.
// The database handle scopes each tick's mutations to one transaction.
func NewScheduleRunner(db *sql.DB, schedules *repositories.ScheduleRepository, jobs *repositories.JobRepository, trigger PipelineTrigger, interval time.Duration, logger *log.Logger) *ScheduleRunner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ScheduleRunner{
		db:        db,
		schedules: schedules,
		jobs:      jobs,
		trigger:   trigger,
		logger:    shared.WithLogger(logger, "component", "schedule-runner"),
		interval:  interval,
		now:       time.Now,
	}
}

// Start launches the tick loop. Calling Start on a running runner is a no-op.
func (r *ScheduleRunner) Start() {
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop()
	r.logger.Info("schedule runner started", "interval", r.interval)
}

// Stop signals the loop to exit and waits for it.
func (r *ScheduleRunner) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
	r.logger.Info("schedule runner stopped")
}

func (r *ScheduleRunner) loop() {
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

// Tick evaluates every active schedule once, with all mutations batched into
// one transaction. Errors are logged per schedule so one bad row cannot stall
// the rest.
func (r *ScheduleRunner) Tick() {
	pairs, err := r.schedules.ListActive()
	if err != nil {
		r.logger.Error("failed to list active schedules", "error", err)
		return
	}

	now := r.now().UTC()
	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error("failed to begin tick transaction", "error", err)
		return
	}
	defer tx.Rollback()

	for _, pair := range pairs {
		if pair.Playlist == nil || !pair.Playlist.IsActive {
			continue
		}
		if !shouldRun(pair.Schedule, now) {
			continue
		}
		if err := r.fire(tx, pair.Schedule, pair.Playlist, now); err != nil {
			r.logger.Error("failed to fire schedule", "schedule_id", pair.Schedule.ID, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit tick", "error", err)
	}
}

// fire ensures a pending job exists for the playlist, then attempts the
// pipeline trigger. Only a successful trigger stamps the schedule; a busy
// supervisor leaves it untouched so the next tick retries.
func (r *ScheduleRunner) fire(tx *sql.Tx, schedule *models.Schedule, playlist *models.Playlist, now time.Time) error {
	pending, err := r.jobs.FindPendingForPlaylistIn(tx, playlist.ID)
	if err != nil {
		return err
	}
	if pending == nil {
		job := &models.Job{
			PlaylistID:   playlist.ID,
			Action:       "sync",
			Status:       models.JobQueued,
			CastopodSlug: playlist.CastopodSlug,
			CastopodUUID: playlist.CastopodUUID,
			ShouldUpload: playlist.HasCastopodLink(),
			Note:         fmt.Sprintf("scheduled run for %s", playlist.DisplayName()),
		}
		if err := r.jobs.CreateIn(tx, job); err != nil {
			return err
		}
		r.logger.Info("queued scheduled job", "job_id", job.ID, "playlist", playlist.DisplayName())
	} else {
		r.logger.Debug("playlist already has a pending job", "playlist", playlist.DisplayName(), "job_id", pending.ID)
	}

	if err := r.trigger.Trigger(); err != nil {
		if errors.Is(err, shared.ErrPipelineBusy) {
			r.logger.Warn("pipeline busy, schedule left for retry", "schedule_id", schedule.ID)
		} else {
			r.logger.Warn("failed to trigger pipeline", "schedule_id", schedule.ID, "error", err)
		}
		return nil
	}

	return r.schedules.MarkTriggeredIn(tx, schedule.ID, now, NextRun(schedule, now))
}

// shouldRun reports whether the schedule is due at the given instant.
//
// A schedule is due when today (in its timezone) is one of its weekdays, the
// local time has passed the configured run time, and it has not already been
// triggered today at or after that run time.
func shouldRun(schedule *models.Schedule, now time.Time) bool {
	if len(schedule.DaysOfWeek) == 0 {
		return false
	}

	loc := schedule.Location()
	local := now.In(loc)
	if !schedule.HasDay(models.WeekdayCode(local.Weekday())) {
		return false
	}

	hour, minute, err := schedule.RunTimeParts()
	if err != nil {
		return false
	}
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if local.Before(target) {
		return false
	}

	if schedule.LastRunAt != nil {
		last := schedule.LastRunAt.In(loc)
		sameDay := last.Year() == local.Year() && last.YearDay() == local.YearDay()
		if sameDay && !last.Before(target) {
			return false
		}
	}
	return true
}

// NextRun scans forward from the day after now and returns the next instant
// the schedule will fire, or nil when no weekday matches within the horizon.
func NextRun(schedule *models.Schedule, now time.Time) *time.Time {
	if len(schedule.DaysOfWeek) == 0 {
		return nil
	}
	hour, minute, err := schedule.RunTimeParts()
	if err != nil {
		return nil
	}

	loc := schedule.Location()
	local := now.In(loc)
	for offset := 1; offset <= nextRunHorizonDays; offset++ {
		day := local.AddDate(0, 0, offset)
		if !schedule.HasDay(models.WeekdayCode(day.Weekday())) {
			continue
		}
		next := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc).UTC()
		return &next
	}
	return nil
}
