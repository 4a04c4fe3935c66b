// Package runloop provides the single logical thread the core runs on when no
// UI toolkit owns the event loop.
package runloop

import (
	"context"
	"log/slog"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display
const DefaultFrameInterval = 16 * time.Millisecond

// Loop serializes work onto one goroutine. Other goroutines hand work over
// with Post; code already on the loop arms frame callbacks with RequestFrame.
type Loop struct {
	mailbox  chan func()
	frames   []func()
	interval time.Duration
	logger   *slog.Logger

	frameCount int
}

// New creates a loop with the given frame interval and mailbox capacity
func New(interval time.Duration, capacity int, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		mailbox:  make(chan func(), capacity),
		interval: interval,
		logger:   logger,
	}
}

// Post schedules fn on the loop goroutine. It blocks when the mailbox is full
// and gives up when ctx is done.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case l.mailbox <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestFrame implements domain.FrameSource. Must be called on the loop goroutine.
func (l *Loop) RequestFrame(fn func()) {
	l.frames = append(l.frames, fn)
}

// Frames returns the number of frame boundaries that ran callbacks
func (l *Loop) Frames() int { return l.frameCount }

// Run processes mailbox items and frame boundaries until ctx is done.
// Frame callbacks armed during a frame run at the next boundary.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug("run loop started", "frameInterval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("run loop stopped", "frames", l.frameCount)
			return ctx.Err()
		case fn := <-l.mailbox:
			fn()
		case <-ticker.C:
			l.runFrame()
		}
	}
}

// Drain runs queued mailbox items and one frame boundary without blocking.
// Used at shutdown so the final state reaches the views.
func (l *Loop) Drain() {
	for {
		select {
		case fn := <-l.mailbox:
			fn()
		default:
			l.runFrame()
			return
		}
	}
}

func (l *Loop) runFrame() {
	if len(l.frames) == 0 {
		return
	}
	batch := l.frames
	l.frames = nil
	l.frameCount++
	for _, fn := range batch {
		fn()
	}
}
