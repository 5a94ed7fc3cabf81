package models

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	t.Run("QueuedToInProgress", func(t *testing.T) {
		if !JobQueued.CanTransitionTo(JobInProgress) {
			t.Error("queued should transition to in_progress")
		}
	})

	t.Run("CancellingToCancelled", func(t *testing.T) {
		if !JobCancelling.CanTransitionTo(JobCancelled) {
			t.Error("cancelling should transition to cancelled")
		}
		if JobCancelling.CanTransitionTo(JobFinished) {
			t.Error("cancelling must never transition to finished")
		}
	})

	t.Run("TerminalStatesAreFinal", func(t *testing.T) {
		for _, status := range []JobStatus{JobFinished, JobFailed, JobCancelled} {
			if !status.IsTerminal() {
				t.Errorf("%s should be terminal", status)
			}
			if status.CanTransitionTo(JobQueued) {
				t.Errorf("%s should not transition anywhere", status)
			}
		}
	})

	t.Run("PendingEquivalents", func(t *testing.T) {
		for _, status := range []JobStatus{JobQueued, JobCancelling, JobInProgress} {
			if !status.IsPending() {
				t.Errorf("%s should count as pending", status)
			}
		}
		if JobFinished.IsPending() {
			t.Error("finished should not count as pending")
		}
	})
}

func TestParseJobStatus(t *testing.T) {
	if _, err := ParseJobStatus("queued"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseJobStatus("sleeping"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParseRunStatus(t *testing.T) {
	if _, err := ParseRunStatus("pending"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseRunStatus("done"); err == nil {
		t.Error("expected error for unknown status")
	}
	if !RunCancelled.IsTerminal() || RunInProgress.IsTerminal() {
		t.Error("terminal classification incorrect")
	}
}
