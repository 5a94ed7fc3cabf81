package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/repositories"
)

// refreshInterval controls how often the jobs list re-reads the database.
const refreshInterval = 2 * time.Second

// Model represents the jobs monitor state.
type Model struct {
	jobs   *repositories.JobRepository
	list   list.Model
	width  int
	height int
	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates the jobs monitor model.
func NewModel(jobs *repositories.JobRepository) Model {
	delegate := list.NewDefaultDelegate()
	jobList := list.New([]list.Item{}, delegate, 0, 0)
	jobList.Title = "Jobs"
	jobList.SetShowHelp(false)
	jobList.SetFilteringEnabled(false)

	return Model{
		jobs: jobs,
		list: jobList,
		help: help.New(),
		keys: newKeyMap(),
	}
}

// Init starts the initial fetch and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchJobs(), m.tick())
}

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			return m, m.fetchJobs()
		case key.Matches(msg, m.keys.cancel):
			if item, ok := m.list.SelectedItem().(jobItem); ok {
				return m, m.cancelJob(item.job.ID)
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgJobsFetched:
		data := msg.data.(struct {
			jobs []*models.Job
			err  error
		})
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, 0, len(data.jobs))
		for _, job := range data.jobs {
			items = append(items, jobItem{job: job})
		}
		m.list.SetItems(items)
		return m, nil

	case MsgCancelRequested:
		data := msg.data.(struct {
			jobID string
			err   error
		})
		if data.err != nil {
			m.status = fmt.Sprintf("cancel failed: %v", data.err)
			return m, nil
		}
		m.status = fmt.Sprintf("cancellation requested for %s", shortID(data.jobID))
		return m, m.fetchJobs()

	case MsgTick:
		return m, tea.Batch(m.fetchJobs(), m.tick())
	}
	return m, nil
}

// View renders the jobs list with a status line and help footer.
func (m Model) View() string {
	view := m.list.View() + "\n"
	if m.err != nil {
		view += styles.err.Render(fmt.Sprintf("error: %v", m.err)) + "\n"
	} else if m.status != "" {
		view += styles.warn.Render(m.status) + "\n"
	}
	view += styles.help.Render(m.help.View(m.keys))
	return view
}

func (m Model) fetchJobs() tea.Cmd {
	return func() tea.Msg {
		jobs, err := m.jobs.List()
		return jobsFetchedMsg(jobs, err)
	}
}

func (m Model) cancelJob(id string) tea.Cmd {
	return func() tea.Msg {
		return cancelRequestedMsg(id, m.jobs.RequestCancel(id))
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg()
	})
}
