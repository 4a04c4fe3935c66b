// Package bus fans in worker, store and navigation events and fans them out
// to view subscribers. Each channel is FIFO; no ordering holds across channels.
package bus

import (
	"log/slog"

	"github.com/mmcdole/crate/internal/domain"
)

// Channel names used in logs
const (
	ChannelWorker     = "worker"
	ChannelStore      = "store"
	ChannelNavigation = "navigation"
)

// Listener receives events from all three channels.
// OnStoreChanged gets 0 for bulk changes.
type Listener interface {
	OnWorkerEvent(ev domain.WorkerEvent)
	OnStoreChanged(id domain.TrackID)
	OnViewChanged(route domain.Route)
}

// Bus holds the worker, store and navigation channels
type Bus struct {
	Worker     *Channel[domain.WorkerEvent]
	Store      *Channel[domain.StoreChange]
	Navigation *Channel[domain.Route]

	logger *slog.Logger
}

// New creates a bus with empty channels
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		Worker:     NewChannel[domain.WorkerEvent](ChannelWorker, logger),
		Store:      NewChannel[domain.StoreChange](ChannelStore, logger),
		Navigation: NewChannel[domain.Route](ChannelNavigation, logger),
		logger:     logger,
	}
}

// AttachStore forwards store notifications onto the store channel
func (b *Bus) AttachStore(store domain.LibraryStore) (detach func()) {
	offChange := store.OnChange(func(id domain.TrackID) {
		b.Store.Publish(domain.StoreChange{TrackID: id})
	})
	offBulk := store.OnBulkChange(func() {
		b.Store.Publish(domain.StoreChange{Bulk: true})
	})
	return func() {
		offChange()
		offBulk()
	}
}

// PublishWorker emits a worker event
func (b *Bus) PublishWorker(ev domain.WorkerEvent) {
	b.logger.Debug("worker event", "type", ev.Type, "jobID", ev.JobID, "trackID", int64(ev.TrackID))
	b.Worker.Publish(ev)
}

// ChangedBulk emits a bulk store change for mutations made outside Upsert
func (b *Bus) ChangedBulk() {
	b.Store.Publish(domain.StoreChange{Bulk: true})
}

// Navigate emits a view change
func (b *Bus) Navigate(route domain.Route) {
	b.logger.Debug("view changed", "route", route.RouteName, "entityType", route.EntityType, "entityID", route.EntityID)
	b.Navigation.Publish(route)
}

// Subscribe attaches l to all three channels. The disposer detaches all of them.
func (b *Bus) Subscribe(l Listener) (dispose func()) {
	offWorker := b.Worker.Subscribe(l.OnWorkerEvent)
	offStore := b.Store.Subscribe(func(c domain.StoreChange) {
		if c.Bulk {
			l.OnStoreChanged(0)
			return
		}
		l.OnStoreChanged(c.TrackID)
	})
	offNav := b.Navigation.Subscribe(l.OnViewChanged)
	return func() {
		offWorker()
		offStore()
		offNav()
	}
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Worker func(domain.WorkerEvent)
	Store  func(domain.TrackID)
	View   func(domain.Route)
}

func (f ListenerFuncs) OnWorkerEvent(ev domain.WorkerEvent) {
	if f.Worker != nil {
		f.Worker(ev)
	}
}

func (f ListenerFuncs) OnStoreChanged(id domain.TrackID) {
	if f.Store != nil {
		f.Store(id)
	}
}

func (f ListenerFuncs) OnViewChanged(route domain.Route) {
	if f.View != nil {
		f.View(route)
	}
}
