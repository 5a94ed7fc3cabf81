package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/evanheo/podwire/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobsFetched MsgKind = iota
	MsgCancelRequested
	MsgTick
)

// jobsFetchedMsg is the constructor for [MsgJobsFetched]
func jobsFetchedMsg(jobs []*models.Job, err error) Msg {
	return Msg{
		kind: MsgJobsFetched,
		data: struct {
			jobs []*models.Job
			err  error
		}{jobs, err},
	}
}

// cancelRequestedMsg is the constructor for [MsgCancelRequested]
func cancelRequestedMsg(jobID string, err error) Msg {
	return Msg{
		kind: MsgCancelRequested,
		data: struct {
			jobID string
			err   error
		}{jobID, err},
	}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
