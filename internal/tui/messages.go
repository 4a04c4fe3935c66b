package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/crate/internal/worker"
)

// Message types for the TUI

// FrameMsg marks a rendering-frame boundary
type FrameMsg struct{}

// WorkerMsg carries one worker message onto the UI goroutine
type WorkerMsg struct {
	Message worker.Message
	NextCmd tea.Cmd // Continuation to read the next message
}

// WorkerExitedMsg signals the worker process ended
type WorkerExitedMsg struct {
	Err error
}

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// ClearStatusMsg signals to clear the status message
type ClearStatusMsg struct{}
