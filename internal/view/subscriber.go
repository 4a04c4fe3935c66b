// Package view holds the subscribers that keep rendered surfaces in sync with
// the library store: the action bar, per-row badges, the sidebar and the
// full-page lists.
//
// Every subscriber listens to both the worker channel and the store channel.
// Store notifications are the source of truth for content; worker events only
// ask for an earlier refresh. The scheduler coalesces the duplicates.
package view

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mmcdole/crate/internal/bus"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/scheduler"
)

// Subscriber is the contract shared by every view subscriber
type Subscriber interface {
	bus.Listener
	scheduler.Refresher

	Bind(b domain.EntityBinding)
	Unbind(entityID string)
	Scheduler() *scheduler.Scheduler
	Dispose()
}

// ActiveFunc resolves the entity currently shown by a surface.
// It is called on every refresh; subscribers never cache its result.
type ActiveFunc func() (entityID string, ok bool)

// Deps are the collaborators every subscriber is constructed with
type Deps struct {
	Store  domain.LibraryReader
	Frames domain.FrameSource
	Active ActiveFunc
	Logger *slog.Logger
}

// Base implements the shared half of Subscriber: binding ownership, bus
// wiring and request routing. Concrete subscribers embed it and provide
// RefreshTargets and RefreshAll.
type Base struct {
	name     string
	store    domain.LibraryReader
	active   ActiveFunc
	bindings map[string]domain.EntityBinding
	sched    *scheduler.Scheduler
	logger   *slog.Logger
	detach   func()
}

func newBase(kind string, deps Deps, r scheduler.Refresher) *Base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	active := deps.Active
	if active == nil {
		active = func() (string, bool) { return "", false }
	}
	b := &Base{
		name:     kind + "#" + uuid.NewString()[:8],
		store:    deps.Store,
		active:   active,
		bindings: make(map[string]domain.EntityBinding),
		logger:   logger,
	}
	b.logger = logger.With("view", b.name)
	b.sched = scheduler.New(namedRefresher{name: b.name, Refresher: r}, deps.Frames, logger)
	return b
}

// namedRefresher lets the scheduler report the instance name before the
// embedding subscriber is fully constructed
type namedRefresher struct {
	name string
	scheduler.Refresher
}

func (n namedRefresher) Name() string { return n.name }

// Name identifies the subscriber instance in logs
func (b *Base) Name() string { return b.name }

// Scheduler exposes the subscriber's scheduler
func (b *Base) Scheduler() *scheduler.Scheduler { return b.sched }

// Attach subscribes to all bus channels. Dispose detaches.
func (b *Base) Attach(bs *bus.Bus) {
	if b.detach != nil {
		b.detach()
	}
	b.detach = bs.Subscribe(b)
}

// === Bindings ===

// Bind registers or replaces the binding for an entity. Nothing is refreshed
// until the next request; hosts navigate after rendering a new entity.
func (b *Base) Bind(binding domain.EntityBinding) {
	ids := make([]domain.TrackID, len(binding.TrackIDs))
	copy(ids, binding.TrackIDs)
	binding.TrackIDs = ids
	b.bindings[binding.EntityID] = binding
	b.logger.Debug("bound entity", "entityID", binding.EntityID, "entityType", binding.EntityType, "tracks", len(ids))
}

// Unbind forgets an entity. Its rendered state goes away on the next full refresh.
func (b *Base) Unbind(entityID string) {
	if _, ok := b.bindings[entityID]; !ok {
		return
	}
	delete(b.bindings, entityID)
	b.logger.Debug("unbound entity", "entityID", entityID)
}

// Binding returns the binding for an entity
func (b *Base) Binding(entityID string) (domain.EntityBinding, bool) {
	binding, ok := b.bindings[entityID]
	return binding, ok
}

// activeBinding resolves the active entity through the accessor
func (b *Base) activeBinding() (domain.EntityBinding, error) {
	id, ok := b.active()
	if !ok {
		return domain.EntityBinding{}, domain.ErrNoActiveEntity
	}
	binding, ok := b.bindings[id]
	if !ok {
		return domain.EntityBinding{}, fmt.Errorf("entity %q not bound: %w", id, domain.ErrNoActiveEntity)
	}
	return binding, nil
}

// === Event routing ===

func (b *Base) OnWorkerEvent(ev domain.WorkerEvent) {
	if ev.Type == domain.DownloadGroupPlanned || !ev.TrackID.Valid() {
		b.sched.RequestAll()
		return
	}
	b.sched.Request(ev.TrackID)
}

func (b *Base) OnStoreChanged(id domain.TrackID) {
	b.sched.Request(id)
}

func (b *Base) OnViewChanged(domain.Route) {
	b.sched.RequestAll()
}

// Dispose detaches from the bus and stops the scheduler
func (b *Base) Dispose() {
	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
	b.sched.Dispose()
	b.bindings = make(map[string]domain.EntityBinding)
	b.logger.Debug("disposed")
}

// RouteTracker follows the navigation channel and answers "which entity is
// active" for subscribers.
type RouteTracker struct {
	current domain.Route
	detach  func()
}

// NewRouteTracker subscribes to navigation events on bs
func NewRouteTracker(bs *bus.Bus) *RouteTracker {
	t := &RouteTracker{}
	t.detach = bs.Navigation.Subscribe(func(r domain.Route) { t.current = r })
	return t
}

// Route returns the last route seen
func (t *RouteTracker) Route() domain.Route { return t.current }

// Active is an ActiveFunc for the current route's entity
func (t *RouteTracker) Active() (string, bool) {
	return t.current.EntityID, t.current.HasEntity()
}

// ActiveFor returns an ActiveFunc that only reports entities on the named route
func (t *RouteTracker) ActiveFor(routeName string) ActiveFunc {
	return func() (string, bool) {
		if t.current.RouteName != routeName {
			return "", false
		}
		if t.current.HasEntity() {
			return t.current.EntityID, true
		}
		return routeName, true
	}
}

// Close stops tracking
func (t *RouteTracker) Close() {
	if t.detach != nil {
		t.detach()
	}
}
