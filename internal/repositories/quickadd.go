package repositories

import (
	"errors"
	"fmt"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// QuickAddInput describes a one-shot registration of a playlist under a
// channel derived from a human-friendly name.
type QuickAddInput struct {
	Name          string // channel/playlist display name, also the slug source
	PlaylistInput string // bare playlist id or a playlist/watch URL
	Description   string
	CastopodSlug  string
	CastopodUUID  string
}

// QuickAddResult reports what QuickAdd created versus reused.
type QuickAddResult struct {
	Channel         *models.Channel
	Playlist        *models.Playlist
	ChannelCreated  bool
	PlaylistCreated bool
}

// QuickAdd gets-or-creates a channel by the slugified name and
// creates-or-updates the playlist identified by the input, adopting any
// Castopod linkage overrides.
func QuickAdd(channels *ChannelRepository, playlists *PlaylistRepository, input QuickAddInput) (*QuickAddResult, error) {
	playlistID, err := models.ExtractPlaylistID(input.PlaylistInput)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	result := &QuickAddResult{}

	slug := models.Slugify(input.Name, "channel")
	channel, err := channels.GetBySlug(slug)
	if errors.Is(err, shared.ErrNotFound) {
		channel = &models.Channel{
			Slug:        slug,
			Title:       firstNonEmpty(input.Name, slug),
			Description: input.Description,
		}
		if err := channels.Create(channel); err != nil {
			return nil, err
		}
		result.ChannelCreated = true
	} else if err != nil {
		return nil, err
	}
	result.Channel = channel

	playlist, err := playlists.GetByYouTubeID(playlistID)
	if errors.Is(err, shared.ErrNotFound) {
		playlist = &models.Playlist{
			ChannelID:    channel.ID,
			YouTubeID:    playlistID,
			Title:        firstNonEmpty(input.Name, playlistID),
			IsActive:     true,
			CastopodSlug: input.CastopodSlug,
			CastopodUUID: input.CastopodUUID,
		}
		if err := playlists.Create(playlist); err != nil {
			return nil, err
		}
		result.Playlist = playlist
		result.PlaylistCreated = true
		return result, nil
	} else if err != nil {
		return nil, err
	}

	updated := false
	if playlist.ChannelID != channel.ID {
		playlist.ChannelID = channel.ID
		updated = true
	}
	if input.CastopodSlug != "" && playlist.CastopodSlug != input.CastopodSlug {
		playlist.CastopodSlug = input.CastopodSlug
		updated = true
	}
	if input.CastopodUUID != "" && playlist.CastopodUUID != input.CastopodUUID {
		playlist.CastopodUUID = input.CastopodUUID
		updated = true
	}
	if input.Name != "" && playlist.Title == "" {
		playlist.Title = input.Name
		updated = true
	}
	if updated {
		if err := playlists.Update(playlist); err != nil {
			return nil, err
		}
	}

	result.Playlist = playlist
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
