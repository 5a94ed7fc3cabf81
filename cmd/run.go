package main

import (
	"context"
	"fmt"

	"github.com/evanheo/podwire/internal/shared"
	"github.com/evanheo/podwire/internal/tasks"
	"github.com/urfave/cli/v3"
)

func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one pipeline pass: active playlists, then the job queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "download-dir",
				Aliases: []string{"d"},
				Usage:   "Base directory for downloaded audio",
			},
			&cli.StringFlag{
				Name:    "audio-format",
				Aliases: []string{"f"},
				Usage:   "Extracted audio format (mp3, m4a, ...)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Enumerate playlist entries without downloading or uploading",
			},
			&cli.BoolFlag{
				Name:  "skip-configuration",
				Usage: "Skip the configured playlists and only drain the job queue",
			},
			&cli.BoolFlag{
				Name:  "queue-only",
				Usage: "Alias for --skip-configuration",
			},
		},
		Action: r.RunPass,
	}
}

// RunPass executes the full pipeline pass in-process: every active playlist
// unless skipped, then queued jobs until the queue is empty. Per-playlist
// failures are recorded on their runs and do not fail the command.
func (r *Runner) RunPass(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	opts := tasks.Options{
		DownloadRoot: r.config.Pipeline.DownloadDir,
		AudioFormat:  r.config.Pipeline.AudioFormat,
		DryRun:       cmd.Bool("dry-run"),
	}
	if cmd.String("download-dir") != "" {
		opts.DownloadRoot = cmd.String("download-dir")
	}
	if cmd.String("audio-format") != "" {
		opts.AudioFormat = cmd.String("audio-format")
	}

	orchestrator := r.buildOrchestrator(db, opts)

	prog := make(chan tasks.ProgressUpdate, 16)
	progDone := make(chan struct{})
	go func() {
		defer close(progDone)
		for update := range prog {
			if update.Total > 0 {
				r.logger.Info(update.Message, "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
			} else {
				r.logger.Info(update.Message, "phase", update.Phase.String())
			}
		}
	}()

	skipConfigured := r.config.Pipeline.SkipConfiguration || cmd.Bool("skip-configuration") || cmd.Bool("queue-only")

	var results []*tasks.Result
	if !skipConfigured {
		results, err = orchestrator.ProcessAll(ctx, prog)
		if err != nil {
			close(prog)
			<-progDone
			return fmt.Errorf("configuration pass failed: %w", err)
		}
	} else {
		r.logger.Info("skipping configured playlists")
	}

	drained, err := orchestrator.DrainQueue(ctx, prog)
	close(prog)
	<-progDone
	if err != nil {
		return fmt.Errorf("queue drain failed: %w", err)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		r.writePlain("%s: %d entries, %d downloaded, %d uploaded, %d skipped\n",
			result.Playlist.DisplayName(), result.Entries, result.Downloaded, result.Uploaded, result.Skipped)
	}
	if failed > 0 {
		r.writePlainln("%d playlist(s) failed, see runs for details", failed)
	}
	r.writePlain("queue: %d job(s) processed\n", drained)

	return nil
}
