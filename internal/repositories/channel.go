package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// ChannelRepository handles channel CRUD on SQLite.
//
// Deleting a channel cascades to its playlists and their schedules, runs, and jobs.
type ChannelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new ChannelRepository with the given database connection
func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

const channelColumns = "id, sequence, slug, title, description, created_at, updated_at"

// Create inserts a new channel into the database with generated ID and sequence
func (r *ChannelRepository) Create(channel *models.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "channels")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	channel.ID = shared.GenerateID()
	channel.Sequence = sequence
	channel.CreatedAt = now
	channel.UpdatedAt = now

	query := `
		INSERT INTO channels (id, sequence, slug, title, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		channel.ID,
		channel.Sequence,
		channel.Slug,
		channel.Title,
		nullString(channel.Description),
		channel.CreatedAt,
		channel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	return nil
}

// Get retrieves a channel by ID
func (r *ChannelRepository) Get(id string) (*models.Channel, error) {
	query := fmt.Sprintf("SELECT %s FROM channels WHERE id = ?", channelColumns)
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetBySlug retrieves a channel by its unique slug
func (r *ChannelRepository) GetBySlug(slug string) (*models.Channel, error) {
	query := fmt.Sprintf("SELECT %s FROM channels WHERE slug = ?", channelColumns)
	return r.scanOne(r.db.QueryRow(query, slug), slug)
}

// Update modifies an existing channel in the database
func (r *ChannelRepository) Update(channel *models.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	channel.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE channels
		SET slug = ?, title = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		channel.Slug,
		channel.Title,
		nullString(channel.Description),
		channel.UpdatedAt,
		channel.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}

	return requireAffected(result, "channel", channel.ID)
}

// Delete removes a channel and, via cascade, everything it owns
func (r *ChannelRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM channels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return requireAffected(result, "channel", id)
}

// List retrieves all channels ordered by sequence
func (r *ChannelRepository) List() ([]*models.Channel, error) {
	query := fmt.Sprintf("SELECT %s FROM channels ORDER BY sequence", channelColumns)
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) scanOne(row *sql.Row, id string) (*models.Channel, error) {
	channel, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("channel", id)
	}
	return channel, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	var channel models.Channel
	var description sql.NullString

	err := row.Scan(
		&channel.ID,
		&channel.Sequence,
		&channel.Slug,
		&channel.Title,
		&description,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}

	channel.Description = scanNullString(description)
	return &channel, nil
}

// requireAffected converts a zero-row write into a not-found error.
func requireAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound(entity, id)
	}
	return nil
}
