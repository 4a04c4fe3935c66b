package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/library"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// Sidebar lists downloaded tracks grouped by where they came from. It is
// always rendered, so it never reports a missing active entity.
type Sidebar struct {
	*Base

	catalog domain.Catalog
	groups  []library.Group
	visible []int
	filter  string
	builds  int
}

// NewSidebar creates a sidebar. catalog may be nil.
func NewSidebar(deps Deps, catalog domain.Catalog) *Sidebar {
	if catalog == nil {
		catalog = domain.NewStaticCatalog(nil, nil)
	}
	s := &Sidebar{catalog: catalog}
	s.Base = newBase("sidebar", deps, s)
	return s
}

// RefreshTargets rebuilds: a single record can move between groups
func (s *Sidebar) RefreshTargets([]domain.TrackID) error {
	return s.RefreshAll()
}

// RefreshAll regroups the whole store
func (s *Sidebar) RefreshAll() error {
	s.groups = library.GroupTracks(s.store.GetAll(), s.catalog)
	s.applyFilter()
	s.builds++
	return nil
}

// SetFilter narrows the visible groups to fuzzy label matches
func (s *Sidebar) SetFilter(query string) {
	s.filter = strings.TrimSpace(query)
	s.applyFilter()
}

func (s *Sidebar) applyFilter() {
	s.visible = s.visible[:0]
	if s.filter == "" {
		for i := range s.groups {
			s.visible = append(s.visible, i)
		}
		return
	}
	labels := make([]string, len(s.groups))
	for i, g := range s.groups {
		labels[i] = g.Label
	}
	ranks := fuzzy.RankFindFold(s.filter, labels)
	sort.Stable(ranks)
	for _, r := range ranks {
		s.visible = append(s.visible, r.OriginalIndex)
	}
}

// Groups returns the visible groups in display order
func (s *Sidebar) Groups() []library.Group {
	out := make([]library.Group, 0, len(s.visible))
	for _, i := range s.visible {
		out = append(out, s.groups[i])
	}
	return out
}

// Builds counts full regroupings
func (s *Sidebar) Builds() int { return s.builds }

// Render draws section headers followed by group rows. cursor indexes Groups();
// pass -1 for no highlight.
func (s *Sidebar) Render(cursor int) string {
	var b strings.Builder
	var section string
	for i, g := range s.Groups() {
		if name := sectionTitle(g.Kind); name != section {
			if section != "" {
				b.WriteString("\n")
			}
			section = name
			b.WriteString(styles.GroupHeaderStyle.Render(name))
			b.WriteString("\n")
		}
		row := fmt.Sprintf("%s (%d)", styles.Truncate(g.Label, 28), len(g.TrackIDs))
		if i == cursor {
			b.WriteString(styles.SelectedItemStyle.Render(row))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(row))
		}
		b.WriteString("\n")
	}
	return styles.SidebarStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func sectionTitle(k library.GroupKind) string {
	switch k {
	case library.GroupPlaylist:
		return "Playlists"
	case library.GroupAlbum:
		return "Albums"
	}
	return "Artists"
}
