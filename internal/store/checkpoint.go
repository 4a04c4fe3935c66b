package store

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/crate/internal/domain"
)

// Checkpointer moves snapshots between the library store and a SnapshotStore:
// Restore at startup, Checkpoint at shutdown and every N mutations.
type Checkpointer struct {
	library domain.LibraryStore
	snaps   domain.SnapshotStore
	every   int
	logger  *slog.Logger

	dirty  int
	detach func()
}

// NewCheckpointer creates a checkpointer. every <= 0 disables periodic saves.
func NewCheckpointer(library domain.LibraryStore, snaps domain.SnapshotStore, every int, logger *slog.Logger) *Checkpointer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkpointer{library: library, snaps: snaps, every: every, logger: logger}
}

// Restore loads the persisted snapshot into the library store
func (c *Checkpointer) Restore() (domain.LoadResult, error) {
	doc, err := c.snaps.Load()
	if err != nil {
		return domain.LoadResult{}, fmt.Errorf("restore: %w", err)
	}
	result := c.library.Load(doc)
	c.dirty = 0
	c.logger.Info("restored library", "loaded", result.Loaded, "skipped", result.Skipped)
	return result, nil
}

// Start counts mutations and checkpoints every N of them
func (c *Checkpointer) Start() {
	if c.detach != nil {
		return
	}
	c.detach = c.library.OnChange(func(domain.TrackID) {
		c.dirty++
		if c.every > 0 && c.dirty >= c.every {
			if err := c.Checkpoint(); err != nil {
				c.logger.Error("periodic checkpoint failed", "error", err)
			}
		}
	})
}

// Stop detaches from the library store
func (c *Checkpointer) Stop() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// Checkpoint persists the current library contents
func (c *Checkpointer) Checkpoint() error {
	doc := c.library.Serialize()
	if err := c.snaps.Save(doc); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	c.logger.Debug("checkpoint saved", "records", len(doc), "mutations", c.dirty)
	c.dirty = 0
	return nil
}

// Dirty is the number of mutations since the last checkpoint or restore
func (c *Checkpointer) Dirty() int { return c.dirty }
