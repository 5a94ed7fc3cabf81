package main

import (
	"context"
	"os"

	"github.com/evanheo/podwire/internal/pipeline"
	"github.com/evanheo/podwire/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnvFile(""); err != nil {
		logger.Warn("failed to load env file", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	supervisor := pipeline.NewSupervisor(config.Pipeline, config.Castopod, logger)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Supervisor: supervisor,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "podwire",
		Usage:    "Turn YouTube playlists into podcast feeds",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
