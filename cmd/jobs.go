package main

import (
	"context"
	"fmt"

	"github.com/evanheo/podwire/internal/formatter"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/urfave/cli/v3"
)

func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and manage pipeline jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List jobs, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "cancel",
				Usage: "Request cancellation of a running or queued job",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.JobsCancel,
			},
			{
				Name:  "runs",
				Usage: "List recent playlist runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of runs to show",
						Value:   20,
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output CSV instead of a table",
					},
				},
				Action: r.JobsRuns,
			},
		},
	}
}

// JobsList prints all jobs as a table or JSON.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	jobs, err := r.jobRepository()
	if err != nil {
		return err
	}

	list, err := jobs.List()
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}

	if _, err := r.output.Write(formatter.JobsTable(list)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// JobsCancel marks a job as cancelling so its worker stops at the next
// checkpoint. Terminal jobs cannot be cancelled.
func (r *Runner) JobsCancel(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("job id is required")
	}

	jobs, err := r.jobRepository()
	if err != nil {
		return err
	}

	if err := jobs.RequestCancel(id); err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", id, err)
	}

	r.writePlain("job %s marked as cancelling\n", id)
	return nil
}

// JobsRuns prints recent playlist runs.
func (r *Runner) JobsRuns(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).List(cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("csv") {
		output, err := formatter.RunsCSV(runs)
		if err != nil {
			return fmt.Errorf("failed to render CSV: %w", err)
		}
		if _, err := r.output.Write(output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if _, err := r.output.Write(formatter.RunsTable(runs)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
