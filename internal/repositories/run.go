package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// RunRepository handles run CRUD on SQLite.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = "id, sequence, playlist_id, status, started_at, finished_at, message, progress_total, progress_completed, current_task, progress_message, created_at, updated_at"

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if run.Status == "" {
		run.Status = models.RunPending
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	run.ID = shared.GenerateID()
	run.Sequence = sequence
	run.CreatedAt = now
	run.UpdatedAt = now

	query := `
		INSERT INTO runs (id, sequence, playlist_id, status, started_at, finished_at, message, progress_total, progress_completed, current_task, progress_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID,
		run.Sequence,
		run.PlaylistID,
		run.Status.String(),
		run.StartedAt,
		nullTime(run.FinishedAt),
		nullString(run.Message),
		run.ProgressTotal,
		run.ProgressCompleted,
		nullString(run.CurrentTask),
		nullString(run.ProgressMessage),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := fmt.Sprintf("SELECT %s FROM runs WHERE id = ?", runColumns)
	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("run", id)
	}
	return run, err
}

// Update persists all mutable run fields
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	run.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE runs
		SET status = ?, started_at = ?, finished_at = ?, message = ?, progress_total = ?, progress_completed = ?, current_task = ?, progress_message = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.Status.String(),
		run.StartedAt,
		nullTime(run.FinishedAt),
		nullString(run.Message),
		run.ProgressTotal,
		run.ProgressCompleted,
		nullString(run.CurrentTask),
		nullString(run.ProgressMessage),
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return requireAffected(result, "run", run.ID)
}

// Delete removes a run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return requireAffected(result, "run", id)
}

// ListByPlaylist retrieves runs for a playlist, newest first
func (r *RunRepository) ListByPlaylist(playlistID string) ([]*models.Run, error) {
	query := fmt.Sprintf("SELECT %s FROM runs WHERE playlist_id = ? ORDER BY sequence DESC", runColumns)
	return r.queryMany(query, playlistID)
}

// List retrieves the most recent runs across all playlists
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM runs ORDER BY sequence DESC LIMIT ?", runColumns)
	return r.queryMany(query, limit)
}

func (r *RunRepository) queryMany(query string, args ...any) ([]*models.Run, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var status string
	var finishedAt sql.NullTime
	var message, currentTask, progressMessage sql.NullString

	err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.PlaylistID,
		&status,
		&run.StartedAt,
		&finishedAt,
		&message,
		&run.ProgressTotal,
		&run.ProgressCompleted,
		&currentTask,
		&progressMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.FinishedAt = scanNullTime(finishedAt)
	run.Message = scanNullString(message)
	run.CurrentTask = scanNullString(currentTask)
	run.ProgressMessage = scanNullString(progressMessage)
	return &run, nil
}
