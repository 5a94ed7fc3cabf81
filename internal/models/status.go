package models

import "fmt"

// JobStatus represents the current state of a queued processing job.
type JobStatus string

const (
	// JobQueued indicates the job is waiting for the dispatcher.
	JobQueued JobStatus = "queued"

	// JobInProgress indicates a worker is currently processing the job.
	JobInProgress JobStatus = "in_progress"

	// JobCancelling indicates cancellation was requested and has not yet been
	// observed by the worker.
	JobCancelling JobStatus = "cancelling"

	// JobFinished indicates the job completed successfully.
	JobFinished JobStatus = "finished"

	// JobFailed indicates the job terminated with an error.
	JobFailed JobStatus = "failed"

	// JobCancelled indicates the worker observed the cancellation request and
	// stopped.
	JobCancelled JobStatus = "cancelled"
)

func (s JobStatus) String() string { return string(s) }

// IsValid checks whether the job status is one of the defined constants.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobQueued, JobInProgress, JobCancelling, JobFinished, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the job status represents a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobFinished, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// IsPending reports whether the status counts as pending-equivalent work for
// duplicate suppression: a playlist with a job in one of these states does not
// get another job enqueued.
func (s JobStatus) IsPending() bool {
	switch s {
	case JobQueued, JobCancelling, JobInProgress:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks whether this status can transition to the target status.
//
// Valid transitions:
//   - queued → in_progress, cancelling, cancelled
//   - in_progress → cancelling, finished, failed, cancelled
//   - cancelling → cancelled, failed
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case JobQueued:
		return target == JobInProgress || target == JobCancelling || target == JobCancelled
	case JobInProgress:
		return target == JobCancelling || target == JobFinished || target == JobFailed || target == JobCancelled
	case JobCancelling:
		return target == JobCancelled || target == JobFailed
	default:
		return false
	}
}

// ParseJobStatus parses a string into a JobStatus, returning an error if invalid.
func ParseJobStatus(s string) (JobStatus, error) {
	status := JobStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid job status: %q", s)
	}
	return status, nil
}

// RunStatus represents the current state of a playlist processing run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunFinished   RunStatus = "finished"
	RunFailed     RunStatus = "failed"
	RunCancelled  RunStatus = "cancelled"
)

func (s RunStatus) String() string { return string(s) }

// IsValid checks whether the run status is one of the defined constants.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunPending, RunInProgress, RunFinished, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the run status represents a final state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunFinished, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// ParseRunStatus parses a string into a RunStatus, returning an error if invalid.
func ParseRunStatus(s string) (RunStatus, error) {
	status := RunStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid run status: %q", s)
	}
	return status, nil
}
