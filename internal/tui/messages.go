// Package tui provides Bubble Tea models for the interactive TUI.
package tui

import "github.com/h0rv/reqboard/internal/domain"

// ErrorMsg is emitted when an error occurs that stops the app.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// ProjectSelectedMsg is emitted when the user selects a project.
type ProjectSelectedMsg struct {
	Project Project
}

// Custom messages for screen transitions and background loads.
type (
	loggedInMsg struct{}

	boardReadyMsg struct{}

	requirementsLoadedMsg struct {
		seq  int
		reqs []domain.Requirement
		err  error
	}

	openDetailMsg struct {
		req domain.Requirement
	}

	closeDetailMsg struct{}

	openFailedMsg struct {
		url string
		err error
	}
)
