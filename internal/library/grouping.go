package library

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mmcdole/crate/internal/domain"
)

// GroupKind orders sidebar sections
type GroupKind int

const (
	GroupPlaylist GroupKind = iota
	GroupAlbum
	GroupArtist // synthesized from metadata
)

func (k GroupKind) String() string {
	switch k {
	case GroupPlaylist:
		return "playlist"
	case GroupAlbum:
		return "album"
	default:
		return "artist"
	}
}

const unknownArtist = "Unknown Artist"

// Group is one sidebar entry
type Group struct {
	Key      string
	Kind     GroupKind
	Label    string
	Origin   domain.Origin // NoOrigin for synthesized groups
	TrackIDs []domain.TrackID
}

// GroupTracks derives the sidebar grouping from a snapshot. It keeps no state:
// calling it again on the same snapshot gives the same groups.
func GroupTracks(snap domain.Snapshot, catalog domain.Catalog) []Group {
	byKey := make(map[string]*Group)
	members := make(map[string][]domain.DownloadRecord)

	for _, rec := range snap {
		key, kind := ResolveGroup(rec)
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key, Kind: kind, Origin: rec.Origin.Normalize()}
			byKey[key] = g
		}
		members[key] = append(members[key], rec)
	}

	groups := make([]Group, 0, len(byKey))
	for key, g := range byKey {
		recs := members[key]
		sortRecords(recs)
		g.TrackIDs = make([]domain.TrackID, len(recs))
		for i, rec := range recs {
			g.TrackIDs[i] = rec.TrackID
		}
		g.Label = groupLabel(g.Kind, g.Origin, recs, catalog)
		groups = append(groups, *g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Kind != groups[j].Kind {
			return groups[i].Kind < groups[j].Kind
		}
		li, lj := strings.ToLower(groups[i].Label), strings.ToLower(groups[j].Label)
		if li != lj {
			return li < lj
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// ResolveGroup returns the group key of a single record: its origin when
// attributed, otherwise an artist/album key derived from metadata.
func ResolveGroup(rec domain.DownloadRecord) (string, GroupKind) {
	if origin := rec.Origin.Normalize(); origin.IsAttributed() {
		if origin.Kind == domain.OriginPlaylist {
			return origin.Key(), GroupPlaylist
		}
		return origin.Key(), GroupAlbum
	}
	folder := cases.Fold()
	artist := folder.String(strings.TrimSpace(rec.Metadata.DisplayArtist()))
	album := folder.String(strings.TrimSpace(rec.Metadata.Album))
	return "artist:" + artist + "/" + album, GroupArtist
}

func groupLabel(kind GroupKind, origin domain.Origin, recs []domain.DownloadRecord, catalog domain.Catalog) string {
	switch kind {
	case GroupPlaylist:
		if catalog != nil {
			if name, ok := catalog.PlaylistName(origin.ID); ok && name != "" {
				return name
			}
		}
		return "Playlist " + origin.ID
	case GroupAlbum:
		if catalog != nil {
			if name, ok := catalog.AlbumName(origin.ID); ok && name != "" {
				return name
			}
		}
		for _, rec := range recs {
			if rec.Metadata.Album != "" {
				return rec.Metadata.Album
			}
		}
		return "Album " + origin.ID
	}

	// Synthesized groups: use the first non-empty spelling found
	var artist, album string
	for _, rec := range recs {
		if artist == "" {
			artist = strings.TrimSpace(rec.Metadata.DisplayArtist())
		}
		if album == "" {
			album = strings.TrimSpace(rec.Metadata.Album)
		}
	}
	if artist == "" {
		artist = unknownArtist
	}
	artist = titleCase(artist)
	if album == "" {
		return artist
	}
	return artist + " / " + titleCase(album)
}

// titleCase capitalizes labels typed in all lower case; anything else is left alone.
func titleCase(s string) string {
	if s != strings.ToLower(s) {
		return s
	}
	return cases.Title(language.Und, cases.NoLower).String(s)
}

func sortRecords(recs []domain.DownloadRecord) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Metadata.TrackNumber != b.Metadata.TrackNumber {
			if a.Metadata.TrackNumber == 0 || b.Metadata.TrackNumber == 0 {
				return b.Metadata.TrackNumber == 0
			}
			return a.Metadata.TrackNumber < b.Metadata.TrackNumber
		}
		ta, tb := strings.ToLower(a.Metadata.Title), strings.ToLower(b.Metadata.Title)
		if ta != tb {
			return ta < tb
		}
		return a.TrackID < b.TrackID
	})
}
