package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// JobRepository handles job CRUD and the queue queries on SQLite.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = "id, sequence, playlist_id, action, status, castopod_slug, castopod_playlist_uuid, note, should_upload, progress_total, progress_completed, current_task, progress_message, created_at, updated_at"

// JobPatch carries partial updates for a job. Nil fields are left untouched.
type JobPatch struct {
	Status            *models.JobStatus
	ProgressTotal     *int
	ProgressCompleted *int
	CurrentTask       *string
	ProgressMessage   *string
	Note              *string
}

// Create inserts a new job into the database with generated ID and sequence
func (r *JobRepository) Create(job *models.Job) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.CreateIn(tx, job); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job: %w", err)
	}
	return nil
}

// CreateIn inserts a new job using the caller's transaction, for callers
// batching several mutations into one commit.
func (r *JobRepository) CreateIn(tx *sql.Tx, job *models.Job) error {
	if job.Status == "" {
		job.Status = models.JobQueued
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := nextSequence(tx, "jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	job.ID = shared.GenerateID()
	job.Sequence = sequence
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO jobs (id, sequence, playlist_id, action, status, castopod_slug, castopod_playlist_uuid, note, should_upload, progress_total, progress_completed, current_task, progress_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		job.ID,
		job.Sequence,
		job.PlaylistID,
		job.Action,
		job.Status.String(),
		nullString(job.CastopodSlug),
		nullString(job.CastopodUUID),
		nullString(job.Note),
		job.ShouldUpload,
		job.ProgressTotal,
		job.ProgressCompleted,
		nullString(job.CurrentTask),
		nullString(job.ProgressMessage),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID
func (r *JobRepository) Get(id string) (*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = ?", jobColumns)
	job, err := scanJob(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("job", id)
	}
	return job, err
}

// Patch applies a partial update to a job in one statement.
func (r *JobRepository) Patch(id string, patch JobPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return fmt.Errorf("invalid job status: %q", *patch.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, patch.Status.String())
	}
	if patch.ProgressTotal != nil {
		sets = append(sets, "progress_total = ?")
		args = append(args, *patch.ProgressTotal)
	}
	if patch.ProgressCompleted != nil {
		sets = append(sets, "progress_completed = ?")
		args = append(args, *patch.ProgressCompleted)
	}
	if patch.CurrentTask != nil {
		sets = append(sets, "current_task = ?")
		args = append(args, nullString(*patch.CurrentTask))
	}
	if patch.ProgressMessage != nil {
		sets = append(sets, "progress_message = ?")
		args = append(args, nullString(*patch.ProgressMessage))
	}
	if patch.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, nullString(*patch.Note))
	}

	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch job: %w", err)
	}
	return requireAffected(result, "job", id)
}

// RequestCancel marks a non-terminal job as cancelling so the worker observes
// the request at its next checkpoint. Terminal jobs are rejected.
func (r *JobRepository) RequestCancel(id string) error {
	job, err := r.Get(id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", shared.ErrInvalidInput, id, job.Status)
	}
	if job.Status == models.JobCancelling {
		return nil
	}
	// A still-queued job skips straight to cancelled: no worker holds it.
	target := models.JobCancelling
	if job.Status == models.JobQueued {
		target = models.JobCancelled
	}
	return r.Patch(id, JobPatch{Status: &target})
}

// Delete removes a job by ID
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return requireAffected(result, "job", id)
}

// List retrieves all jobs in creation order
func (r *JobRepository) List() ([]*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs ORDER BY sequence", jobColumns)
	return r.queryMany(query)
}

// ListByStatus retrieves jobs with the given status in creation order
func (r *JobRepository) ListByStatus(status models.JobStatus) ([]*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE status = ? ORDER BY created_at, sequence", jobColumns)
	return r.queryMany(query, status.String())
}

// OldestQueued returns the oldest queued job, or nil when the queue is empty.
func (r *JobRepository) OldestQueued() (*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE status = ? ORDER BY created_at, sequence LIMIT 1", jobColumns)
	job, err := scanJob(r.db.QueryRow(query, models.JobQueued.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// FindPendingForPlaylist returns a queued, cancelling, or in-progress job for
// the playlist, or nil when none exists. Used for duplicate suppression.
func (r *JobRepository) FindPendingForPlaylist(playlistID string) (*models.Job, error) {
	return findPendingForPlaylist(r.db, playlistID)
}

// FindPendingForPlaylistIn is FindPendingForPlaylist on the caller's
// transaction.
func (r *JobRepository) FindPendingForPlaylistIn(tx *sql.Tx, playlistID string) (*models.Job, error) {
	return findPendingForPlaylist(tx, playlistID)
}

func findPendingForPlaylist(q querier, playlistID string) (*models.Job, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM jobs WHERE playlist_id = ? AND status IN (?, ?, ?) ORDER BY created_at, sequence LIMIT 1",
		jobColumns,
	)
	job, err := scanJob(q.QueryRow(query,
		playlistID,
		models.JobQueued.String(),
		models.JobCancelling.String(),
		models.JobInProgress.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

func (r *JobRepository) queryMany(query string, args ...any) ([]*models.Job, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var status string
	var castopodSlug, castopodUUID, note, currentTask, progressMessage sql.NullString

	err := row.Scan(
		&job.ID,
		&job.Sequence,
		&job.PlaylistID,
		&job.Action,
		&status,
		&castopodSlug,
		&castopodUUID,
		&note,
		&job.ShouldUpload,
		&job.ProgressTotal,
		&job.ProgressCompleted,
		&currentTask,
		&progressMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Status = models.JobStatus(status)
	job.CastopodSlug = scanNullString(castopodSlug)
	job.CastopodUUID = scanNullString(castopodUUID)
	job.Note = scanNullString(note)
	job.CurrentTask = scanNullString(currentTask)
	job.ProgressMessage = scanNullString(progressMessage)
	return &job, nil
}
