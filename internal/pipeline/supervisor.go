// Package pipeline supervises the external pipeline subprocess.
//
// The [Supervisor] guarantees at most one pipeline process is alive at any
// time: trigger and the reap-on-status check both run under one mutex, so no
// two callers can observe "not running" and both start a process.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/shared"
)

// Status is a point-in-time snapshot of the supervised process.
type Status struct {
	Running        bool       `json:"running"`
	PID            int        `json:"pid,omitempty"`
	Command        string     `json:"command"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	LastStartedAt  *time.Time `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	LastExitCode   *int       `json:"last_exit_code,omitempty"`
	LogPath        string     `json:"log_path"`
}

// process tracks one spawned subprocess until it is reaped.
type process struct {
	cmd      *exec.Cmd
	waitDone chan struct{} // closed once Wait has returned
	pumpDone chan struct{} // closed once the log pump has drained
	exitCode int
}

// Supervisor owns the lifecycle of the single external pipeline subprocess.
type Supervisor struct {
	pipeline shared.PipelineConfig
	castopod shared.CastopodConfig
	logger   *log.Logger

	mu             sync.Mutex
	proc           *process
	logFile        *os.File
	startedAt      *time.Time
	lastStartedAt  *time.Time
	lastFinishedAt *time.Time
	lastExitCode   *int
}

// NewSupervisor creates a Supervisor for the configured pipeline command.
func NewSupervisor(pipeline shared.PipelineConfig, castopod shared.CastopodConfig, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Supervisor{
		pipeline: pipeline,
		castopod: castopod,
		logger:   shared.WithLogger(logger, "component", "supervisor"),
	}
}

// Trigger starts the pipeline subprocess.
//
// Returns [shared.ErrPipelineBusy] when a process is already alive, and
// [shared.ErrPipelineCommand] when no command is configured.
func (s *Supervisor) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()
	if s.proc != nil {
		return shared.ErrPipelineBusy
	}

	args, err := splitCommand(s.pipeline.Command)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPipelineCommand, err)
	}
	if len(args) == 0 {
		return shared.ErrPipelineCommand
	}

	logFile, err := s.openLog()
	if err != nil {
		return err
	}

	fmt.Fprintf(logFile, "[%s] ===== pipeline-run start (command: %s) =====\n", logTimestamp(), s.pipeline.Command)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = s.pipeline.Workdir
	cmd.Env = s.buildEnv()

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		logFile.Close()
		return fmt.Errorf("failed to start pipeline process: %w", err)
	}

	proc := &process{
		cmd:      cmd,
		waitDone: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}

	go pumpOutput(pr, logFile, proc.pumpDone)
	go func() {
		err := cmd.Wait()
		proc.exitCode = exitCode(err)
		pw.Close()
		close(proc.waitDone)
	}()

	now := time.Now().UTC()
	s.proc = proc
	s.logFile = logFile
	s.startedAt = &now
	s.lastStartedAt = &now
	s.lastFinishedAt = nil
	s.lastExitCode = nil

	s.logger.Info("pipeline process started", "pid", cmd.Process.Pid)
	return nil
}

// Status reaps any finished process and reports the current state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()

	status := Status{
		Running:        s.proc != nil,
		Command:        s.pipeline.Command,
		StartedAt:      s.startedAt,
		LastStartedAt:  s.lastStartedAt,
		LastFinishedAt: s.lastFinishedAt,
		LastExitCode:   s.lastExitCode,
		LogPath:        s.logPath(),
	}
	if s.proc != nil && s.proc.cmd.Process != nil {
		status.PID = s.proc.cmd.Process.Pid
	}
	return status
}

// reapLocked finalizes a process that has exited: joins the log pump with a
// bounded wait, writes the finish banner, closes the log handle, and records
// the exit code and finish time. Callers must hold the mutex.
func (s *Supervisor) reapLocked() {
	if s.proc == nil {
		return
	}
	select {
	case <-s.proc.waitDone:
	default:
		return
	}

	select {
	case <-s.proc.pumpDone:
	case <-time.After(time.Second):
		s.logger.Warn("log pump did not drain in time")
	}

	exit := s.proc.exitCode
	if s.logFile != nil {
		fmt.Fprintf(s.logFile, "[%s] ===== pipeline-run finished (exit: %d) =====\n", logTimestamp(), exit)
		s.logFile.Close()
		s.logFile = nil
	}

	now := time.Now().UTC()
	s.lastExitCode = &exit
	s.lastFinishedAt = &now
	s.proc = nil
	s.startedAt = nil

	s.logger.Info("pipeline process finished", "exit_code", exit)
}

func (s *Supervisor) logPath() string {
	if s.pipeline.LogPath != "" {
		return s.pipeline.LogPath
	}
	return "pipeline-run.log"
}

func (s *Supervisor) openLog() (*os.File, error) {
	path := s.logPath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline log: %w", err)
	}
	return file, nil
}

// buildEnv forwards the API and podcast-host settings to the subprocess on
// top of the current environment.
func (s *Supervisor) buildEnv() []string {
	env := os.Environ()
	add := func(key, value string) {
		if value != "" {
			env = append(env, key+"="+value)
		}
	}

	add("PODWIRE_API_BASE_URL", s.pipeline.APIBaseURL)
	if s.pipeline.SkipConfiguration {
		env = append(env, "PIPELINE_SKIP_CONFIGURATION=true")
	}
	add("CASTOPOD_API_BASE_URL", s.castopod.BaseURL)
	add("CASTOPOD_API_USERNAME", s.castopod.Username)
	add("CASTOPOD_API_PASSWORD", s.castopod.Password)
	if s.castopod.UserID > 0 {
		env = append(env, fmt.Sprintf("CASTOPOD_API_USER_ID=%d", s.castopod.UserID))
	}
	add("CASTOPOD_API_TIMEZONE", s.castopod.Timezone)
	add("CASTOPOD_API_PUBLICATION_METHOD", s.castopod.PublicationMethod)
	add("CASTOPOD_API_EPISODE_TYPE", s.castopod.EpisodeType)
	if s.castopod.VerifySSL {
		env = append(env, "CASTOPOD_API_VERIFY_SSL=true")
	} else {
		env = append(env, "CASTOPOD_API_VERIFY_SSL=false")
	}

	return env
}

func logTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
