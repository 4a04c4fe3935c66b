// Package scheduler coalesces change signals into at most one refresh per
// rendering frame for each subscriber.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mmcdole/crate/internal/domain"
)

// Refresher is the refresh side of a view subscriber
type Refresher interface {
	Name() string
	RefreshTargets(ids []domain.TrackID) error
	RefreshAll() error
}

// Refresh modes reported in logs and errors
const (
	ModeAll     = "all"
	ModeTargets = "targets"
)

// Stats counts what a scheduler has done since creation
type Stats struct {
	Requests        int
	Flushes         int
	FullRefreshes   int
	TargetRefreshes int
	Skipped         int // refreshes that found no active entity
	Failures        int
}

// pendingSet accumulates work between two frame boundaries
type pendingSet struct {
	targets   map[domain.TrackID]struct{}
	forceFull bool
}

func (p *pendingSet) empty() bool {
	return !p.forceFull && len(p.targets) == 0
}

// Scheduler batches requests for a single subscriber.
// All methods must be called from the UI goroutine.
type Scheduler struct {
	refresher Refresher
	frames    domain.FrameSource
	logger    *slog.Logger
	onError   func(*domain.RefreshError)

	pending  pendingSet
	armed    bool
	disposed bool
	stats    Stats
}

// New creates a scheduler that refreshes r at frame boundaries of frames.
func New(r Refresher, frames domain.FrameSource, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		refresher: r,
		frames:    frames,
		logger:    logger.With("subscriber", r.Name()),
		pending:   pendingSet{targets: make(map[domain.TrackID]struct{})},
	}
}

// OnError registers a callback for refresh failures, in addition to logging
func (s *Scheduler) OnError(fn func(*domain.RefreshError)) {
	s.onError = fn
}

// Request marks id for a targeted refresh. An invalid id (0) asks for a
// full refresh instead.
func (s *Scheduler) Request(id domain.TrackID) {
	if s.disposed {
		return
	}
	s.stats.Requests++
	if id.Valid() {
		s.pending.targets[id] = struct{}{}
	} else {
		s.pending.forceFull = true
	}
	s.arm()
}

// RequestAll asks for a full refresh at the next frame
func (s *Scheduler) RequestAll() {
	s.Request(0)
}

// RequestTargets marks several ids at once
func (s *Scheduler) RequestTargets(ids []domain.TrackID) {
	for _, id := range ids {
		if id.Valid() {
			s.Request(id)
		}
	}
}

// Pending reports whether a flush is armed
func (s *Scheduler) Pending() bool {
	return s.armed
}

// Stats returns counters for tests and diagnostics
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Dispose drops pending work; later requests are ignored
func (s *Scheduler) Dispose() {
	s.disposed = true
	s.pending = pendingSet{targets: make(map[domain.TrackID]struct{})}
}

func (s *Scheduler) arm() {
	if s.armed {
		return
	}
	s.armed = true
	s.frames.RequestFrame(s.flush)
}

// flush runs at a frame boundary. The pending set is swapped out before the
// refresher runs so requests made during the callback land in the next frame.
func (s *Scheduler) flush() {
	s.armed = false
	if s.disposed {
		return
	}
	work := s.pending
	s.pending = pendingSet{targets: make(map[domain.TrackID]struct{})}
	if work.empty() {
		return
	}
	s.stats.Flushes++

	if work.forceFull {
		s.stats.FullRefreshes++
		s.run(ModeAll, nil, s.refresher.RefreshAll)
		return
	}

	ids := make([]domain.TrackID, 0, len(work.targets))
	for id := range work.targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.stats.TargetRefreshes++
	s.run(ModeTargets, ids, func() error { return s.refresher.RefreshTargets(ids) })
}

// run invokes fn, converting errors and panics into reported RefreshErrors.
// One failing subscriber never affects another: each has its own scheduler.
func (s *Scheduler) run(mode string, ids []domain.TrackID, fn func() error) {
	err := safeCall(fn)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrNoActiveEntity) {
		s.stats.Skipped++
		s.logger.Debug("refresh skipped, no active entity", "mode", mode, "ids", ids)
		return
	}

	s.stats.Failures++
	rerr := &domain.RefreshError{Subscriber: s.refresher.Name(), Mode: mode, IDs: ids, Err: err}
	s.logger.Error("subscriber refresh failed", "mode", mode, "ids", ids, "error", err)
	if s.onError != nil {
		s.onError(rerr)
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
