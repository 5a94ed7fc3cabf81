package tasks

import "fmt"

// ProgressUpdate represents a progress event during playlist processing.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolvePodcast Phase = iota
	FetchMetadata
	Downloading
	WriteMetadata
	Artwork
	Uploading
	Finalize
)

func (p Phase) String() string {
	switch p {
	case ResolvePodcast:
		return "resolve_podcast"
	case FetchMetadata:
		return "fetch_metadata"
	case Downloading:
		return "downloading"
	case WriteMetadata:
		return "write_metadata"
	case Artwork:
		return "artwork"
	case Uploading:
		return "uploading"
	case Finalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// sendProgress emits an update without blocking when no receiver is ready.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

func downloadingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Downloading,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Downloading %s", title),
	}
}

func uploadingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Uploading,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploading %s", title),
	}
}
