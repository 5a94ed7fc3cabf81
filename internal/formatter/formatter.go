// package formatter renders jobs, runs, and pipeline status for the CLI in
// table, plain text, CSV, and JSON forms
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/pipeline"
)

// FormatDuration renders a duration in seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ToJSON marshals v as indented JSON.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func formatProgress(completed, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", completed, total)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

// JobsTable renders jobs as an aligned text table.
func JobsTable(jobs []*models.Job) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tPLAYLIST\tSTATUS\tPROGRESS\tTASK\tCREATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(job.ID),
			shortID(job.PlaylistID),
			job.Status,
			formatProgress(job.ProgressCompleted, job.ProgressTotal),
			orDash(job.CurrentTask),
			formatTime(job.CreatedAt),
		)
	}
	w.Flush()
	if len(jobs) == 0 {
		buf.WriteString("No jobs found.\n")
	}
	return buf.Bytes()
}

// RunsTable renders runs as an aligned text table.
func RunsTable(runs []*models.Run) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tPLAYLIST\tSTATUS\tPROGRESS\tSTARTED\tFINISHED\tMESSAGE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(run.ID),
			shortID(run.PlaylistID),
			run.Status,
			formatProgress(run.ProgressCompleted, run.ProgressTotal),
			formatTime(run.StartedAt),
			formatTimePtr(run.FinishedAt),
			orDash(run.Message),
		)
	}
	w.Flush()
	if len(runs) == 0 {
		buf.WriteString("No runs found.\n")
	}
	return buf.Bytes()
}

// StatusText renders the supervisor status as readable key-value lines.
func StatusText(status pipeline.Status) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	state := "idle"
	if status.Running {
		state = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintf(w, "State:\t%s\n", state)
	fmt.Fprintf(w, "Command:\t%s\n", orDash(status.Command))
	fmt.Fprintf(w, "Started:\t%s\n", formatTimePtr(status.StartedAt))
	fmt.Fprintf(w, "Last started:\t%s\n", formatTimePtr(status.LastStartedAt))
	fmt.Fprintf(w, "Last finished:\t%s\n", formatTimePtr(status.LastFinishedAt))
	exit := "-"
	if status.LastExitCode != nil {
		exit = strconv.Itoa(*status.LastExitCode)
	}
	fmt.Fprintf(w, "Last exit code:\t%s\n", exit)
	fmt.Fprintf(w, "Log:\t%s\n", status.LogPath)
	w.Flush()
	return buf.Bytes()
}

// RunsCSV exports runs as CSV with columns: ID, PlaylistID, Status,
// ProgressCompleted, ProgressTotal, StartedAt, FinishedAt, Message.
func RunsCSV(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "PlaylistID", "Status", "ProgressCompleted", "ProgressTotal", "StartedAt", "FinishedAt", "Message"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		finished := ""
		if run.FinishedAt != nil {
			finished = run.FinishedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			run.ID,
			run.PlaylistID,
			run.Status.String(),
			strconv.Itoa(run.ProgressCompleted),
			strconv.Itoa(run.ProgressTotal),
			run.StartedAt.UTC().Format(time.RFC3339),
			finished,
			run.Message,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
