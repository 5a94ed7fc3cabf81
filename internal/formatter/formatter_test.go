package formatter

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/pipeline"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{75, "1:15"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{-5, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestJobsTable(t *testing.T) {
	t.Run("RendersRows", func(t *testing.T) {
		jobs := []*models.Job{
			{
				ID:                "0123456789abcdef",
				PlaylistID:        "fedcba9876543210",
				Status:            models.JobInProgress,
				ProgressCompleted: 2,
				ProgressTotal:     5,
				CurrentTask:       "uploading",
				CreatedAt:         time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC),
			},
		}
		out := string(JobsTable(jobs))
		if !strings.Contains(out, "01234567") {
			t.Errorf("expected shortened id, got %q", out)
		}
		if !strings.Contains(out, "in_progress") || !strings.Contains(out, "2/5") {
			t.Errorf("expected status and progress, got %q", out)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		out := string(JobsTable(nil))
		if !strings.Contains(out, "No jobs found") {
			t.Errorf("expected empty notice, got %q", out)
		}
	})
}

func TestStatusText(t *testing.T) {
	t.Run("Idle", func(t *testing.T) {
		exit := 0
		status := pipeline.Status{Command: "run-pipeline", LastExitCode: &exit, LogPath: "pipeline-run.log"}
		out := string(StatusText(status))
		if !strings.Contains(out, "idle") {
			t.Errorf("expected idle state, got %q", out)
		}
		if !strings.Contains(out, "run-pipeline") {
			t.Errorf("expected command, got %q", out)
		}
	})

	t.Run("Running", func(t *testing.T) {
		status := pipeline.Status{Running: true, PID: 4242, Command: "run-pipeline"}
		out := string(StatusText(status))
		if !strings.Contains(out, "running (pid 4242)") {
			t.Errorf("expected running state with pid, got %q", out)
		}
	})
}

func TestRunsCSV(t *testing.T) {
	finished := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	runs := []*models.Run{
		{
			ID:                "run-1",
			PlaylistID:        "pl-1",
			Status:            models.RunFinished,
			ProgressCompleted: 3,
			ProgressTotal:     3,
			StartedAt:         time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC),
			FinishedAt:        &finished,
			Message:           "Downloaded 3 entries",
		},
		{
			ID:         "run-2",
			PlaylistID: "pl-1",
			Status:     models.RunInProgress,
			StartedAt:  time.Date(2026, 1, 6, 7, 0, 0, 0, time.UTC),
		},
	}

	data, err := RunsCSV(runs)
	if err != nil {
		t.Fatalf("RunsCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if records[1][2] != "finished" || records[1][6] == "" {
		t.Errorf("unexpected finished row %v", records[1])
	}
	if records[2][6] != "" {
		t.Errorf("expected empty finish time for running run, got %v", records[2])
	}
}

func TestToJSON(t *testing.T) {
	data, err := ToJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("expected trailing newline")
	}
}
