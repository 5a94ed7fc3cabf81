package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/evanheo/podwire/internal/models"
)

var (
	_ list.Item = jobItem{}
)

// jobItem wraps [models.Job] to implement [list.Item].
type jobItem struct {
	job *models.Job
}

func (i jobItem) FilterValue() string { return i.job.ID }

func (i jobItem) Title() string {
	return fmt.Sprintf("%s %s", i.job.Status, shortID(i.job.ID))
}

func (i jobItem) Description() string {
	desc := fmt.Sprintf("playlist %s", shortID(i.job.PlaylistID))
	if i.job.ProgressTotal > 0 {
		desc = fmt.Sprintf("%s • %d/%d", desc, i.job.ProgressCompleted, i.job.ProgressTotal)
	}
	if i.job.CurrentTask != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.job.CurrentTask)
	}
	if i.job.ProgressMessage != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.job.ProgressMessage)
	}
	return desc
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
