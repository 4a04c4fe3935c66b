package view

import (
	"strings"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// BadgeState is the per-row download indicator
type BadgeState string

const (
	BadgeNone        BadgeState = "none"
	BadgeQueued      BadgeState = "queued"
	BadgeDownloading BadgeState = "downloading"
	BadgeDone        BadgeState = "done"
	BadgeFailed      BadgeState = "failed"
)

// BadgeFor derives the badge shown for a track from its record
func BadgeFor(rec domain.DownloadRecord, ok bool) BadgeState {
	if !ok {
		return BadgeNone
	}
	if rec.IsComplete() {
		return BadgeDone
	}
	switch rec.Status {
	case domain.StatusDownloading:
		return BadgeDownloading
	case domain.StatusFailed:
		return BadgeFailed
	case domain.StatusCancelled:
		return BadgeNone
	}
	return BadgeQueued
}

// Render returns the styled glyph for the state
func (s BadgeState) Render() string {
	switch s {
	case BadgeQueued:
		return styles.QueuedStyle.Render(styles.QueuedChar)
	case BadgeDownloading:
		return styles.DownloadingStyle.Render(styles.DownloadingChar)
	case BadgeDone:
		return styles.DoneStyle.Render(styles.DoneChar)
	case BadgeFailed:
		return styles.FailedStyle.Render(styles.FailedChar)
	}
	return " "
}

// Badges keeps one badge per row of the active entity's track list
type Badges struct {
	*Base

	entityID string
	rows     []domain.TrackID
	states   map[domain.TrackID]BadgeState

	rebuilds int
	patches  int
}

// NewBadges creates a badge layer
func NewBadges(deps Deps) *Badges {
	b := &Badges{states: make(map[domain.TrackID]BadgeState)}
	b.Base = newBase("badges", deps, b)
	return b
}

// RefreshTargets patches the rows for ids. If the active entity is not the
// one last rendered, the layer is rebuilt for the new entity instead.
func (b *Badges) RefreshTargets(ids []domain.TrackID) error {
	binding, err := b.activeBinding()
	if err != nil {
		return err
	}
	if binding.EntityID != b.entityID {
		b.rebuild(binding)
		return nil
	}
	for _, id := range ids {
		if !binding.Contains(id) {
			continue
		}
		b.states[id] = BadgeFor(b.store.Get(id))
		b.patches++
	}
	return nil
}

// RefreshAll rebuilds every badge for the active entity
func (b *Badges) RefreshAll() error {
	binding, err := b.activeBinding()
	if err != nil {
		b.clear()
		return err
	}
	b.rebuild(binding)
	return nil
}

func (b *Badges) rebuild(binding domain.EntityBinding) {
	b.entityID = binding.EntityID
	b.rows = append(b.rows[:0], binding.TrackIDs...)
	b.states = make(map[domain.TrackID]BadgeState, len(b.rows))
	for _, id := range b.rows {
		b.states[id] = BadgeFor(b.store.Get(id))
	}
	b.rebuilds++
}

func (b *Badges) clear() {
	b.entityID = ""
	b.rows = nil
	b.states = make(map[domain.TrackID]BadgeState)
}

// EntityID is the entity whose rows are currently rendered
func (b *Badges) EntityID() string { return b.entityID }

// State returns the rendered badge for a row
func (b *Badges) State(id domain.TrackID) BadgeState {
	if s, ok := b.states[id]; ok {
		return s
	}
	return BadgeNone
}

// Rows returns the rendered row order
func (b *Badges) Rows() []domain.TrackID { return b.rows }

// Counts reports how many full rebuilds and row patches have run
func (b *Badges) Counts() (rebuilds, patches int) { return b.rebuilds, b.patches }

// Render draws one badge per row, top to bottom
func (b *Badges) Render() string {
	lines := make([]string, len(b.rows))
	for i, id := range b.rows {
		lines[i] = b.State(id).Render()
	}
	return strings.Join(lines, "\n")
}
