package view

import (
	"strings"
	"testing"

	"github.com/mmcdole/crate/internal/domain"
)

func seedLibrary(t *testing.T, e *env) {
	t.Helper()
	e.upsert(t, 1, domain.RecordPatch{FileURI: "/1", Origin: domain.PlaylistOrigin("7"),
		Metadata: domain.TrackMetadata{Title: "Ocean Drive", Artist: "Duke Dumont"}})
	e.upsert(t, 2, domain.RecordPatch{FileURI: "/2", Origin: domain.AlbumOrigin("9"),
		Metadata: domain.TrackMetadata{Title: "Moment's Notice", Artist: "John Coltrane", Album: "Blue Train"}})
	e.upsert(t, 3, domain.RecordPatch{FileURI: "/3",
		Metadata: domain.TrackMetadata{Title: "Sinnerman", Artist: "Nina Simone", Album: "Pastel Blues"}})
}

func testCatalog() domain.Catalog {
	return domain.NewStaticCatalog(
		[]domain.Playlist{{ID: "7", Title: "Road Trip"}},
		[]domain.Album{{ID: "9", Title: "Blue Train", Artist: "John Coltrane"}},
	)
}

func TestSidebarGroupsByOrigin(t *testing.T) {
	e := newEnv(t)
	seedLibrary(t, e)
	s := NewSidebar(e.deps(), testCatalog())
	s.Attach(e.bus)
	s.Scheduler().RequestAll()
	e.frames.Tick()

	groups := s.Groups()
	if len(groups) != 3 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Label != "Road Trip" || groups[1].Label != "Blue Train" {
		t.Fatalf("labels = %q, %q", groups[0].Label, groups[1].Label)
	}
	if groups[2].Origin.IsAttributed() {
		t.Fatalf("synthesized group has origin %v", groups[2].Origin)
	}
	out := s.Render(0)
	for _, want := range []string{"Playlists", "Albums", "Artists", "Road Trip (1)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestSidebarTargetedRequestRegroups(t *testing.T) {
	e := newEnv(t)
	seedLibrary(t, e)
	s := NewSidebar(e.deps(), testCatalog())
	s.Attach(e.bus)
	s.Scheduler().RequestAll()
	e.frames.Tick()

	// the synthesized track gets attributed to the playlist
	e.upsert(t, 3, domain.RecordPatch{Origin: domain.PlaylistOrigin("7")})
	e.frames.Tick()

	if s.Builds() != 2 {
		t.Fatalf("builds = %d, want 2", s.Builds())
	}
	groups := s.Groups()
	if len(groups) != 2 || len(groups[0].TrackIDs) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestSidebarFilter(t *testing.T) {
	e := newEnv(t)
	seedLibrary(t, e)
	s := NewSidebar(e.deps(), testCatalog())
	s.Scheduler().RequestAll()
	e.frames.Tick()

	s.SetFilter("road")
	if g := s.Groups(); len(g) != 1 || g[0].Label != "Road Trip" {
		t.Fatalf("filtered groups = %+v", g)
	}

	// the filter survives a rebuild
	e.upsert(t, 4, domain.RecordPatch{FileURI: "/4", Origin: domain.PlaylistOrigin("8")})
	s.Scheduler().RequestAll()
	e.frames.Tick()
	if g := s.Groups(); len(g) != 1 {
		t.Fatalf("filtered groups after rebuild = %+v", g)
	}

	s.SetFilter("")
	if len(s.Groups()) != 4 {
		t.Fatalf("groups = %+v", s.Groups())
	}
}

func TestSidebarRefreshesWithoutActiveEntity(t *testing.T) {
	e := newEnv(t)
	s := NewSidebar(e.deps(), nil)
	s.Scheduler().RequestAll()
	e.frames.Tick()
	if st := s.Scheduler().Stats(); st.Skipped != 0 || st.FullRefreshes != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
