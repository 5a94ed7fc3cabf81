// Package ui implements an interactive jobs monitor using bubbletea's Elm architecture.
//
// The TUI lists jobs with live status badges, refreshing on a fixed interval.
// The selected job can be cancelled with a single keypress; the cancellation
// request lands as a `cancelling` status that the worker observes
// cooperatively.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern,
// receiving messages via the Msg union type.
//
// Keyboard navigation uses vim-style bindings (j/k, c, r, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
