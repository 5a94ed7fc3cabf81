package main

import (
	"context"
	"fmt"

	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/shared"
	"github.com/urfave/cli/v3"
)

func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Register a playlist under a channel in one step",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "Display name for the channel and playlist",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"l"},
				Usage:    "Playlist ID or URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Playlist description",
			},
			&cli.StringFlag{
				Name:  "castopod-slug",
				Usage: "Castopod podcast handle to publish episodes to",
			},
			&cli.StringFlag{
				Name:  "castopod-uuid",
				Usage: "Castopod podcast GUID to publish episodes to",
			},
		},
		Action: r.Add,
	}
}

// Add gets-or-creates a channel from the display name and registers the
// playlist under it.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	result, err := repositories.QuickAdd(
		repositories.NewChannelRepository(db),
		repositories.NewPlaylistRepository(db),
		repositories.QuickAddInput{
			Name:          cmd.String("name"),
			PlaylistInput: cmd.String("playlist"),
			Description:   cmd.String("description"),
			CastopodSlug:  cmd.String("castopod-slug"),
			CastopodUUID:  cmd.String("castopod-uuid"),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add playlist: %w", err)
	}

	if result.ChannelCreated {
		r.writePlain("channel %s created\n", result.Channel.Slug)
	} else {
		r.writePlain("channel %s reused\n", result.Channel.Slug)
	}
	if result.PlaylistCreated {
		r.writePlain("playlist %s registered\n", result.Playlist.YouTubeID)
	} else {
		r.writePlain("playlist %s updated\n", result.Playlist.YouTubeID)
	}

	return nil
}
