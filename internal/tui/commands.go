package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/crate/internal/worker"
)

// FrameTickCmd schedules the next frame boundary
func FrameTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return FrameMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// workerItem is one entry on the worker channel: a message, or the exit result
type workerItem struct {
	msg  worker.Message
	err  error
	done bool
}

// StartWorkerCmd runs proc in the background and streams its messages to the
// UI. Uses a continuation pattern: every WorkerMsg carries the command that
// reads the next one.
func StartWorkerCmd(ctx context.Context, proc *worker.Process) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan workerItem, 64)
		go func() {
			defer close(ch)
			err := proc.Run(ctx, func(m worker.Message) {
				select {
				case ch <- workerItem{msg: m}:
				case <-ctx.Done():
				}
			})
			select {
			case ch <- workerItem{err: err, done: true}:
			case <-ctx.Done():
			}
		}()
		return readWorker(ch)
	}
}

// readWorker reads one item from the channel and wraps it with its continuation
func readWorker(ch <-chan workerItem) tea.Msg {
	item, ok := <-ch
	if !ok {
		return WorkerExitedMsg{Err: errors.New("worker stream closed")}
	}
	if item.done {
		return WorkerExitedMsg{Err: item.err}
	}
	return WorkerMsg{Message: item.msg, NextCmd: listenToWorkerCmd(ch)}
}

// listenToWorkerCmd returns a command that reads the next worker message
func listenToWorkerCmd(ch <-chan workerItem) tea.Cmd {
	return func() tea.Msg {
		return readWorker(ch)
	}
}
