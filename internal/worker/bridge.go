package worker

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/crate/internal/bus"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/jobid"
)

// CancelPolicy decides what a cancelled job does to its in-flight record
type CancelPolicy string

const (
	// CancelRemove deletes the in-flight record
	CancelRemove CancelPolicy = "remove"
	// CancelKeep leaves the record with a visible cancelled status
	CancelKeep CancelPolicy = "keep"
)

// ParseCancelPolicy validates a configured policy
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(s) {
	case CancelRemove, CancelKeep:
		return CancelPolicy(s), nil
	}
	return "", fmt.Errorf("cancel policy: unsupported value %q", s)
}

// Bridge translates worker messages into store mutations and bus events.
// The store is updated before the event is published, so subscribers always
// observe a store that is consistent with the event they receive.
type Bridge struct {
	store  domain.LibraryStore
	bus    *bus.Bus
	policy CancelPolicy
	logger *slog.Logger

	groups map[string]*groupState
}

// groupState is one planned batch. terminal holds the outcome per track so
// repeated events for the same track count once; true means finished.
type groupState struct {
	progress domain.GroupProgress
	terminal map[domain.TrackID]bool
}

// NewBridge creates a bridge
func NewBridge(store domain.LibraryStore, b *bus.Bus, policy CancelPolicy, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = CancelRemove
	}
	return &Bridge{
		store:  store,
		bus:    b,
		policy: policy,
		logger: logger,
		groups: make(map[string]*groupState),
	}
}

// Handle applies msg. Must run on the UI goroutine.
func (br *Bridge) Handle(msg Message) error {
	if !msg.Type.Known() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMessage, msg.Type)
	}

	job := jobid.Decode(msg.JobID)
	ev := domain.WorkerEvent{
		Type:        msg.Type,
		JobID:       msg.JobID,
		TrackID:     job.TrackID,
		Quality:     job.Quality,
		Origin:      job.Origin,
		FileURI:     msg.FileURI,
		ErrorReason: msg.ErrorReason,
		GroupSize:   msg.GroupSize,
	}

	if msg.Type == domain.DownloadGroupPlanned {
		origin := job.Origin
		if !origin.IsAttributed() {
			origin = jobid.DecodeOrigin(msg.JobID)
			ev.Origin = origin
		}
		br.planGroup(origin, msg.GroupSize)
	} else if !job.Valid() {
		br.logger.Warn("unattributable job, store left untouched", "type", msg.Type, "jobID", msg.JobID)
	} else if err := br.apply(msg, job); err != nil {
		br.logger.Error("failed to apply worker event", "type", msg.Type, "jobID", msg.JobID, "error", err)
	}

	br.bus.PublishWorker(ev)
	return nil
}

// Group implements domain.GroupTracker
func (br *Bridge) Group(origin domain.Origin) (domain.GroupProgress, bool) {
	g, ok := br.groups[origin.Key()]
	if !ok {
		return domain.GroupProgress{}, false
	}
	return g.progress, true
}

func (br *Bridge) apply(msg Message, job jobid.Job) error {
	id := job.TrackID
	switch msg.Type {
	case domain.DownloadRequested:
		return br.store.Upsert(id, domain.RecordPatch{
			Quality: job.Quality,
			Origin:  job.Origin,
			Status:  domain.StatusDownloading,
		})

	case domain.DownloadFinished:
		patch := domain.RecordPatch{Quality: job.Quality, Origin: job.Origin}
		if msg.FileURI != "" {
			patch.FileURI = msg.FileURI
			patch.Status = domain.StatusComplete
		} else {
			br.logger.Warn("finished event without file uri", "jobID", msg.JobID)
		}
		if err := br.store.Upsert(id, patch); err != nil {
			return err
		}
		br.countGroup(job.Origin, id, true)
		return nil

	case domain.DownloadFailed:
		br.countGroup(job.Origin, id, false)
		rec, ok := br.store.Get(id)
		if !ok {
			// nothing to mark; views still get the worker event and clear spinners
			br.logger.Debug("failed job has no record", "trackID", int64(id), "reason", msg.ErrorReason)
			return nil
		}
		if rec.IsComplete() {
			br.logger.Debug("ignoring failure for completed track", "trackID", int64(id), "reason", msg.ErrorReason)
			return nil
		}
		br.logger.Info("download failed", "trackID", int64(id), "reason", msg.ErrorReason)
		return br.store.Upsert(id, domain.RecordPatch{Status: domain.StatusFailed})

	case domain.DownloadCancelled:
		br.countGroup(job.Origin, id, false)
		rec, ok := br.store.Get(id)
		if !ok || rec.IsComplete() {
			return nil
		}
		if br.policy == CancelKeep {
			return br.store.Upsert(id, domain.RecordPatch{Status: domain.StatusCancelled})
		}
		return br.store.Remove(id)
	}
	return nil
}

func (br *Bridge) planGroup(origin domain.Origin, size int) {
	if !origin.IsAttributed() || size <= 0 {
		br.logger.Debug("ignoring group plan", "origin", origin.Key(), "size", size)
		return
	}
	br.groups[origin.Key()] = &groupState{
		progress: domain.GroupProgress{Origin: origin, Planned: size},
		terminal: make(map[domain.TrackID]bool),
	}
	br.logger.Info("download group planned", "origin", origin.Key(), "size", size)
}

// countGroup records a terminal outcome for one track of a batch; cancelled
// jobs count as failed. A track counts once: a later success moves it from
// failed to finished, a later failure never undoes a success.
func (br *Bridge) countGroup(origin domain.Origin, id domain.TrackID, finished bool) {
	if !origin.IsAttributed() {
		return
	}
	st, ok := br.groups[origin.Key()]
	if !ok {
		return
	}
	g := &st.progress
	prev, seen := st.terminal[id]
	switch {
	case !seen:
		if finished {
			g.Finished++
		} else {
			g.Failed++
		}
	case !prev && finished:
		g.Failed--
		g.Finished++
	default:
		return
	}
	st.terminal[id] = prev || finished
	if g.Done() {
		br.logger.Info("download group done", "origin", origin.Key(), "finished", g.Finished, "failed", g.Failed)
	}
}
