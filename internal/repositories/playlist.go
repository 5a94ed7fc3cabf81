package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// PlaylistRepository handles playlist CRUD on SQLite.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = "id, sequence, channel_id, youtube_playlist_id, title, is_active, castopod_slug, castopod_uuid, created_at, updated_at"

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	playlist.ID = shared.GenerateID()
	playlist.Sequence = sequence
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	query := `
		INSERT INTO playlists (id, sequence, channel_id, youtube_playlist_id, title, is_active, castopod_slug, castopod_uuid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		playlist.ID,
		playlist.Sequence,
		playlist.ChannelID,
		playlist.YouTubeID,
		nullString(playlist.Title),
		playlist.IsActive,
		nullString(playlist.CastopodSlug),
		nullString(playlist.CastopodUUID),
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE id = ?", playlistColumns)
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByYouTubeID retrieves a playlist by its external playlist identifier
func (r *PlaylistRepository) GetByYouTubeID(youtubeID string) (*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE youtube_playlist_id = ?", playlistColumns)
	return r.scanOne(r.db.QueryRow(query, youtubeID), youtubeID)
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	playlist.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE playlists
		SET channel_id = ?, title = ?, is_active = ?, castopod_slug = ?, castopod_uuid = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		playlist.ChannelID,
		nullString(playlist.Title),
		playlist.IsActive,
		nullString(playlist.CastopodSlug),
		nullString(playlist.CastopodUUID),
		playlist.UpdatedAt,
		playlist.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return requireAffected(result, "playlist", playlist.ID)
}

// Delete removes a playlist and, via cascade, its schedules, runs, and jobs
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return requireAffected(result, "playlist", id)
}

// List retrieves all playlists ordered by sequence
func (r *PlaylistRepository) List() ([]*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists ORDER BY sequence", playlistColumns)
	return r.queryMany(query)
}

// ListActive retrieves active playlists ordered by sequence
func (r *PlaylistRepository) ListActive() ([]*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE is_active = 1 ORDER BY sequence", playlistColumns)
	return r.queryMany(query)
}

// ListByChannel retrieves all playlists owned by a channel
func (r *PlaylistRepository) ListByChannel(channelID string) ([]*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE channel_id = ? ORDER BY sequence", playlistColumns)
	return r.queryMany(query, channelID)
}

func (r *PlaylistRepository) queryMany(query string, args ...any) ([]*models.Playlist, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

func (r *PlaylistRepository) scanOne(row *sql.Row, id string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("playlist", id)
	}
	return playlist, err
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var playlist models.Playlist
	var title, castopodSlug, castopodUUID sql.NullString

	err := row.Scan(
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist.Title = scanNullString(title)
	playlist.CastopodSlug = scanNullString(castopodSlug)
	playlist.CastopodUUID = scanNullString(castopodUUID)
	return &playlist, nil
}
