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

// ScheduleRepository handles schedule CRUD on SQLite.
//
// The weekday set is stored as a comma-joined normalized string so it can be
// read back without a join table.
type ScheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new ScheduleRepository with the given database connection
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = "id, sequence, playlist_id, days_of_week, run_time, timezone, is_active, last_run_at, next_run_at, created_at, updated_at"

// ScheduleWithPlaylist pairs an active schedule with its eager-loaded playlist
// for the evaluator's per-tick pass.
type ScheduleWithPlaylist struct {
	Schedule *models.Schedule
	Playlist *models.Playlist
}

// Create inserts a new schedule into the database with generated ID and sequence
func (r *ScheduleRepository) Create(schedule *models.Schedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "schedules")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	schedule.ID = shared.GenerateID()
	schedule.Sequence = sequence
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	query := `
		INSERT INTO schedules (id, sequence, playlist_id, days_of_week, run_time, timezone, is_active, last_run_at, next_run_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		schedule.ID,
		schedule.Sequence,
		schedule.PlaylistID,
		strings.Join(schedule.DaysOfWeek, ","),
		schedule.RunTime,
		schedule.Timezone,
		schedule.IsActive,
		nullTime(schedule.LastRunAt),
		nullTime(schedule.NextRunAt),
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}

	return nil
}

// Get retrieves a schedule by ID
func (r *ScheduleRepository) Get(id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = ?", scheduleColumns)
	schedule, err := scanSchedule(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("schedule", id)
	}
	return schedule, err
}

// Update modifies an existing schedule in the database
func (r *ScheduleRepository) Update(schedule *models.Schedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	schedule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE schedules
		SET days_of_week = ?, run_time = ?, timezone = ?, is_active = ?, last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		strings.Join(schedule.DaysOfWeek, ","),
		schedule.RunTime,
		schedule.Timezone,
		schedule.IsActive,
		nullTime(schedule.LastRunAt),
		nullTime(schedule.NextRunAt),
		schedule.UpdatedAt,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	return requireAffected(result, "schedule", schedule.ID)
}

// MarkTriggered records a successful trigger, setting last_run_at and the
// precomputed next_run_at.
func (r *ScheduleRepository) MarkTriggered(id string, lastRunAt time.Time, nextRunAt *time.Time) error {
	return markTriggered(r.db, id, lastRunAt, nextRunAt)
}

// MarkTriggeredIn is MarkTriggered on the caller's transaction.
func (r *ScheduleRepository) MarkTriggeredIn(tx *sql.Tx, id string, lastRunAt time.Time, nextRunAt *time.Time) error {
	return markTriggered(tx, id, lastRunAt, nextRunAt)
}

func markTriggered(q querier, id string, lastRunAt time.Time, nextRunAt *time.Time) error {
	query := `
		UPDATE schedules
		SET last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := q.Exec(query, lastRunAt.UTC(), nullTime(nextRunAt), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark schedule triggered: %w", err)
	}
	return requireAffected(result, "schedule", id)
}

// Delete removes a schedule by ID
func (r *ScheduleRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return requireAffected(result, "schedule", id)
}

// ListByPlaylist retrieves all schedules attached to a playlist
func (r *ScheduleRepository) ListByPlaylist(playlistID string) ([]*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE playlist_id = ? ORDER BY sequence", scheduleColumns)
	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// ListActive retrieves active schedules with their playlists joined in, the
// evaluator's per-tick working set.
func (r *ScheduleRepository) ListActive() ([]ScheduleWithPlaylist, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM schedules s
		JOIN playlists p ON p.id = s.playlist_id
		WHERE s.is_active = 1
		ORDER BY s.sequence
	`, prefixColumns("s", scheduleColumns), prefixColumns("p", playlistColumns))

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	defer rows.Close()

	var pairs []ScheduleWithPlaylist
	for rows.Next() {
		var schedule models.Schedule
		var playlist models.Playlist
		var days string
		var lastRunAt, nextRunAt sql.NullTime
		var title, castopodSlug, castopodUUID sql.NullString

		err := rows.Scan(
			&schedule.ID,
			&schedule.Sequence,
			&schedule.PlaylistID,
			&days,
			&schedule.RunTime,
			&schedule.Timezone,
			&schedule.IsActive,
			&lastRunAt,
			&nextRunAt,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
			&playlist.ID,
			&playlist.Sequence,
			&playlist.ChannelID,
			&playlist.YouTubeID,
			&title,
			&playlist.IsActive,
			&castopodSlug,
			&castopodUUID,
			&playlist.CreatedAt,
			&playlist.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule with playlist: %w", err)
		}

		schedule.DaysOfWeek = splitDays(days)
		schedule.LastRunAt = scanNullTime(lastRunAt)
		schedule.NextRunAt = scanNullTime(nextRunAt)
		playlist.Title = scanNullString(title)
		playlist.CastopodSlug = scanNullString(castopodSlug)
		playlist.CastopodUUID = scanNullString(castopodUUID)

		pairs = append(pairs, ScheduleWithPlaylist{Schedule: &schedule, Playlist: &playlist})
	}
	return pairs, rows.Err()
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var schedule models.Schedule
	var days string
	var lastRunAt, nextRunAt sql.NullTime

	err := row.Scan(
		&schedule.ID,
		&schedule.Sequence,
		&schedule.PlaylistID,
		&days,
		&schedule.RunTime,
		&schedule.Timezone,
		&schedule.IsActive,
		&lastRunAt,
		&nextRunAt,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	schedule.DaysOfWeek = splitDays(days)
	schedule.LastRunAt = scanNullTime(lastRunAt)
	schedule.NextRunAt = scanNullTime(nextRunAt)
	return &schedule, nil
}

func splitDays(days string) []string {
	if days == "" {
		return nil
	}
	return strings.Split(days, ",")
}

// prefixColumns qualifies a comma-joined column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}
