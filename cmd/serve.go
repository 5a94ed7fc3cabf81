package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/scheduler"
	"github.com/evanheo/podwire/internal/server"
	"github.com/evanheo/podwire/internal/shared"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the scheduler loops and the HTTP control surface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind the HTTP server to",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to bind the HTTP server to",
			},
		},
		Action: r.Serve,
	}
}

// Serve runs the schedule evaluator, the queue dispatcher, and the HTTP
// surface until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	schedules := repositories.NewScheduleRepository(db)
	jobs := repositories.NewJobRepository(db)

	scheduleInterval := time.Duration(r.config.Scheduler.ScheduleIntervalSeconds) * time.Second
	if scheduleInterval <= 0 {
		scheduleInterval = time.Minute
	}
	queueInterval := time.Duration(r.config.Scheduler.QueueIntervalSeconds) * time.Second
	if queueInterval <= 0 {
		queueInterval = 15 * time.Second
	}

	scheduleRunner := scheduler.NewScheduleRunner(db, schedules, jobs, r.supervisor, scheduleInterval, r.logger)
	queueRunner := scheduler.NewQueueRunner(jobs, r.supervisor, queueInterval, r.logger)

	scheduleRunner.Start()
	defer scheduleRunner.Stop()
	queueRunner.Start()
	defer queueRunner.Stop()

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = cmd.Int("port")
	}

	serverAddr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: server.NewRouter(r.supervisor, jobs, r.logger),
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting HTTP server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-signalCtx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	return nil
}
