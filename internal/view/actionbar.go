package view

import (
	"fmt"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// ActionState is what the action bar shows for one entity
type ActionState struct {
	EntityID   string
	Total      int
	Downloaded int
	InFlight   int
	Failed     int
	Group      domain.GroupProgress
	HasGroup   bool
}

// Label is the button text for the state
func (s ActionState) Label() string {
	switch {
	case s.Total > 0 && s.Downloaded == s.Total:
		return "Downloaded"
	case s.InFlight > 0 || (s.HasGroup && !s.Group.Done()):
		return fmt.Sprintf("Downloading %d/%d", s.Downloaded, s.Total)
	}
	return "Download"
}

// ActionBar summarizes download progress for the active playlist or album
type ActionBar struct {
	*Base

	groups domain.GroupTracker
	state  ActionState
}

// NewActionBar creates an action bar. groups may be nil.
func NewActionBar(deps Deps, groups domain.GroupTracker) *ActionBar {
	if groups == nil {
		groups = domain.NoGroups{}
	}
	a := &ActionBar{groups: groups}
	a.Base = newBase("actionbar", deps, a)
	return a
}

// RefreshTargets recounts when any of ids belongs to the active entity.
// The counts are aggregates, so a patch and a rebuild cost the same.
func (a *ActionBar) RefreshTargets(ids []domain.TrackID) error {
	binding, err := a.activeBinding()
	if err != nil {
		return err
	}
	if binding.EntityID != a.state.EntityID {
		a.recount(binding)
		return nil
	}
	for _, id := range ids {
		if binding.Contains(id) {
			a.recount(binding)
			return nil
		}
	}
	return nil
}

// RefreshAll recounts the active entity
func (a *ActionBar) RefreshAll() error {
	binding, err := a.activeBinding()
	if err != nil {
		a.state = ActionState{}
		return err
	}
	a.recount(binding)
	return nil
}

func (a *ActionBar) recount(binding domain.EntityBinding) {
	st := ActionState{EntityID: binding.EntityID, Total: len(binding.TrackIDs)}
	for _, id := range binding.TrackIDs {
		rec, ok := a.store.Get(id)
		if !ok {
			continue
		}
		switch {
		case rec.IsComplete():
			st.Downloaded++
		case rec.Status == domain.StatusFailed:
			st.Failed++
		case rec.IsInFlight():
			st.InFlight++
		}
	}
	if origin := bindingOrigin(binding); origin.IsAttributed() {
		st.Group, st.HasGroup = a.groups.Group(origin)
	}
	a.state = st
}

// bindingOrigin maps an entity binding to the origin its downloads carry
func bindingOrigin(b domain.EntityBinding) domain.Origin {
	switch domain.OriginKind(b.EntityType) {
	case domain.OriginPlaylist:
		return domain.PlaylistOrigin(b.EntityID)
	case domain.OriginAlbum:
		return domain.AlbumOrigin(b.EntityID)
	}
	return domain.NoOrigin()
}

// State returns the last computed state
func (a *ActionBar) State() ActionState { return a.state }

// Render draws the button and a progress bar while downloading
func (a *ActionBar) Render() string {
	st := a.state
	if st.EntityID == "" {
		return ""
	}
	label := st.Label()
	if label == "Downloaded" {
		return styles.ButtonDimStyle.Render(label)
	}
	out := styles.ButtonStyle.Render(label)
	if st.Downloaded > 0 && st.Downloaded < st.Total {
		out += " " + styles.RenderProgressBar(st.Downloaded, st.Total, 20)
	}
	if st.Failed > 0 {
		out += " " + styles.ErrorStyle.Render(fmt.Sprintf("%d failed", st.Failed))
	}
	return out
}
