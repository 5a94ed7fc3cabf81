package main

import (
	"context"
	"fmt"

	"github.com/evanheo/podwire/internal/formatter"
	"github.com/urfave/cli/v3"
)

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pipeline process status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.PipelineStatus,
	}
}

// PipelineStatus prints the supervisor's view of the pipeline process.
func (r *Runner) PipelineStatus(ctx context.Context, cmd *cli.Command) error {
	status := r.supervisor.Status()

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if _, err := r.output.Write(formatter.StatusText(status)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
