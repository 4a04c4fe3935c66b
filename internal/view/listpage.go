package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// Full-page lists
const (
	PageDownloads = "downloads"
	PageLiked     = "liked"
)

// Row is one rendered line of a list page
type Row struct {
	TrackID domain.TrackID
	Title   string
	Artist  string
	Album   string
	Quality domain.Quality
	Badge   BadgeState
}

func rowFor(id domain.TrackID, rec domain.DownloadRecord, ok bool) Row {
	r := Row{TrackID: id, Badge: BadgeFor(rec, ok)}
	if ok {
		r.Title = rec.DisplayTitle()
		r.Artist = rec.Metadata.DisplayArtist()
		r.Album = rec.Metadata.Album
		r.Quality = rec.Quality
	} else {
		r.Title = "Track " + id.String()
	}
	return r
}

// ListPage renders the downloads page (every record the store knows about)
// or the liked page (the tracks bound under the "liked" entity).
type ListPage struct {
	*Base

	page    string
	rows    []Row
	index   map[domain.TrackID]int
	built   bool
	filter  string
	matches fuzzy.Matches

	builds  int
	patches int
}

// NewListPage creates the subscriber for page
func NewListPage(page string, deps Deps) *ListPage {
	l := &ListPage{page: page, index: make(map[domain.TrackID]int)}
	l.Base = newBase("page-"+page, deps, l)
	return l
}

// Page returns which page this is
func (l *ListPage) Page() string { return l.page }

// sourceIDs resolves the track ids the page should list right now
func (l *ListPage) sourceIDs() ([]domain.TrackID, error) {
	if l.page == PageDownloads {
		id, ok := l.active()
		if !ok || id != PageDownloads {
			return nil, domain.ErrNoActiveEntity
		}
		var ids []domain.TrackID
		for id, rec := range l.store.GetAll() {
			if listed(rec) {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}
	binding, err := l.activeBinding()
	if err != nil {
		return nil, err
	}
	return binding.TrackIDs, nil
}

// listed reports whether a record belongs on the downloads page
func listed(rec domain.DownloadRecord) bool {
	return rec.Status != domain.StatusCancelled
}

// RefreshTargets patches rows in place. Rows that appear, vanish or change
// title need a re-sort, so those fall back to a rebuild.
func (l *ListPage) RefreshTargets(ids []domain.TrackID) error {
	source, err := l.sourceIDs()
	if err != nil {
		return err
	}
	if !l.built {
		l.rebuild(source)
		return nil
	}
	members := make(map[domain.TrackID]bool, len(source))
	for _, id := range source {
		members[id] = true
	}
	for _, id := range ids {
		i, shown := l.index[id]
		if shown != members[id] {
			l.rebuild(source)
			return nil
		}
		if !shown {
			continue
		}
		rec, ok := l.store.Get(id)
		row := rowFor(id, rec, ok)
		if row.Title != l.rows[i].Title {
			l.rebuild(source)
			return nil
		}
		l.rows[i] = row
		l.patches++
	}
	return nil
}

// RefreshAll rebuilds the page
func (l *ListPage) RefreshAll() error {
	source, err := l.sourceIDs()
	if err != nil {
		l.rows, l.built = nil, false
		l.index = make(map[domain.TrackID]int)
		l.applyFilter()
		return err
	}
	l.rebuild(source)
	return nil
}

func (l *ListPage) rebuild(ids []domain.TrackID) {
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rec, ok := l.store.Get(id)
		rows = append(rows, rowFor(id, rec, ok))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].Title), strings.ToLower(rows[j].Title)
		if a != b {
			return a < b
		}
		return rows[i].TrackID < rows[j].TrackID
	})
	l.rows = rows
	l.index = make(map[domain.TrackID]int, len(rows))
	for i, r := range rows {
		l.index[r.TrackID] = i
	}
	l.built = true
	l.builds++
	l.applyFilter()
}

// SetFilter narrows rows to fuzzy title matches
func (l *ListPage) SetFilter(query string) {
	l.filter = query
	l.applyFilter()
}

func (l *ListPage) applyFilter() {
	if l.filter == "" {
		l.matches = nil
		return
	}
	titles := make([]string, len(l.rows))
	for i, r := range l.rows {
		titles[i] = strings.ToLower(r.Title)
	}
	l.matches = fuzzy.Find(strings.ToLower(l.filter), titles)
}

// Rows returns the visible rows. With a filter they come in match order.
func (l *ListPage) Rows() []Row {
	if l.filter == "" {
		out := make([]Row, len(l.rows))
		copy(out, l.rows)
		return out
	}
	out := make([]Row, 0, len(l.matches))
	for _, m := range l.matches {
		out = append(out, l.rows[m.Index])
	}
	return out
}

// Counts reports full rebuilds and in-place row patches
func (l *ListPage) Counts() (builds, patches int) { return l.builds, l.patches }

// Render draws the page as a badge column plus title, artist and quality
func (l *ListPage) Render(width int) string {
	if !l.built {
		return styles.PageStyle.Render(styles.DimStyle.Render("Nothing here yet"))
	}
	titleWidth := width/2 - 4
	if titleWidth < 10 {
		titleWidth = 10
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(pageTitle(l.page)))
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  %d tracks", len(l.rows))))
	b.WriteString("\n\n")

	if l.filter != "" {
		for _, m := range l.matches {
			r := l.rows[m.Index]
			title := styles.HighlightMatches(styles.Truncate(r.Title, titleWidth), m.MatchedIndexes)
			b.WriteString(l.renderRow(r, title, titleWidth))
		}
	} else {
		for _, r := range l.rows {
			b.WriteString(l.renderRow(r, styles.Pad(styles.Truncate(r.Title, titleWidth), titleWidth), titleWidth))
		}
	}
	return styles.PageStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (l *ListPage) renderRow(r Row, title string, titleWidth int) string {
	artist := styles.SubtitleStyle.Render(styles.Truncate(r.Artist, titleWidth/2))
	quality := styles.DimStyle.Render(string(r.Quality))
	return fmt.Sprintf("%s %s  %s  %s\n", r.Badge.Render(), title, artist, quality)
}

func pageTitle(page string) string {
	switch page {
	case PageDownloads:
		return "Downloads"
	case PageLiked:
		return "Liked"
	}
	return page
}
