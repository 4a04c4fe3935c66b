// Package app assembles the library store, event bus, worker bridge,
// persistence and view subscribers into one running session. The TUI and the
// headless watcher both drive it from their own frame source.
package app

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/crate/internal/bus"
	"github.com/mmcdole/crate/internal/config"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/library"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/view"
	"github.com/mmcdole/crate/internal/worker"
)

// RouteGroup is the route name for an opened sidebar group
const RouteGroup = "group"

// App is one session. All methods run on the UI thread.
type App struct {
	Config  *config.Config
	Catalog domain.Catalog

	Library     *library.Store
	Bus         *bus.Bus
	Bridge      *worker.Bridge
	Snapshots   *store.SnapshotStore
	Checkpoints *store.Checkpointer
	Routes      *view.RouteTracker

	ActionBar *view.ActionBar
	Badges    *view.Badges
	Sidebar   *view.Sidebar
	Downloads *view.ListPage
	Liked     *view.ListPage

	logger      *slog.Logger
	detachStore func()
}

// New builds a session and restores the persisted library
func New(cfg *config.Config, frames domain.FrameSource, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy, err := worker.ParseCancelPolicy(cfg.Worker.CancelPolicy)
	if err != nil {
		return nil, err
	}
	snaps, err := store.Open(cfg.Library.StateDir, cfg.Library.Profile, logger.With("component", "snapshots"))
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	a := &App{
		Config:    cfg,
		Catalog:   cfg.Catalog(),
		Library:   library.NewStore(logger.With("component", "library")),
		Bus:       bus.New(logger.With("component", "bus")),
		Snapshots: snaps,
		logger:    logger,
	}
	a.detachStore = a.Bus.AttachStore(a.Library)
	a.Bridge = worker.NewBridge(a.Library, a.Bus, policy, logger.With("component", "bridge"))
	a.Checkpoints = store.NewCheckpointer(a.Library, snaps, cfg.Library.CheckpointEvery, logger)
	if _, err := a.Checkpoints.Restore(); err != nil {
		snaps.Close()
		return nil, err
	}
	a.Checkpoints.Start()

	a.Routes = view.NewRouteTracker(a.Bus)
	viewLogger := logger.With("component", "view")
	deps := func(active view.ActiveFunc) view.Deps {
		return view.Deps{Store: a.Library, Frames: frames, Active: active, Logger: viewLogger}
	}
	a.ActionBar = view.NewActionBar(deps(a.Routes.Active), a.Bridge)
	a.Badges = view.NewBadges(deps(a.Routes.Active))
	a.Sidebar = view.NewSidebar(deps(nil), a.Catalog)
	a.Downloads = view.NewListPage(view.PageDownloads, deps(a.Routes.ActiveFor(view.PageDownloads)))
	a.Liked = view.NewListPage(view.PageLiked, deps(a.Routes.ActiveFor(view.PageLiked)))
	a.Liked.Bind(domain.EntityBinding{
		EntityID:   view.PageLiked,
		EntityType: view.PageLiked,
		TrackIDs:   cfg.LikedTracks(),
	})

	a.ActionBar.Attach(a.Bus)
	a.Badges.Attach(a.Bus)
	a.Sidebar.Attach(a.Bus)
	a.Downloads.Attach(a.Bus)
	a.Liked.Attach(a.Bus)
	return a, nil
}

// Subscribers returns every view subscriber in a stable order
func (a *App) Subscribers() []view.Subscriber {
	return []view.Subscriber{a.ActionBar, a.Badges, a.Sidebar, a.Downloads, a.Liked}
}

// HandleWorker feeds one worker message through the bridge
func (a *App) HandleWorker(msg worker.Message) {
	if err := a.Bridge.Handle(msg); err != nil {
		a.logger.Warn("worker message rejected", "type", msg.Type, "jobID", msg.JobID, "error", err)
	}
}

// OpenPage shows a full-page list
func (a *App) OpenPage(page string) {
	a.Bus.Navigate(domain.Route{RouteName: page})
}

// OpenGroup binds the entity surfaces to a sidebar group and navigates to it
func (a *App) OpenGroup(g library.Group) {
	binding := GroupBinding(g)
	a.ActionBar.Bind(binding)
	a.Badges.Bind(binding)
	a.Bus.Navigate(domain.Route{RouteName: RouteGroup, EntityType: binding.EntityType, EntityID: binding.EntityID})
}

// GroupBinding is the entity binding for a sidebar group. Attributed groups
// use the origin id so the action bar can find batch progress.
func GroupBinding(g library.Group) domain.EntityBinding {
	binding := domain.EntityBinding{
		EntityID:   g.Key,
		EntityType: g.Kind.String(),
		TrackIDs:   g.TrackIDs,
		Actions:    []string{"download"},
	}
	if g.Origin.IsAttributed() {
		binding.EntityID = g.Origin.ID
		binding.EntityType = string(g.Origin.Kind)
	}
	return binding
}

// Close checkpoints the library and releases everything New acquired
func (a *App) Close() error {
	a.Checkpoints.Stop()
	err := a.Checkpoints.Checkpoint()
	for _, s := range a.Subscribers() {
		s.Dispose()
	}
	a.Routes.Close()
	a.detachStore()
	if cerr := a.Snapshots.Close(); err == nil {
		err = cerr
	}
	return err
}
