package domain

// Playlist is a known playlist used to label sidebar groups
type Playlist struct {
	ID    string
	Title string
}

// Album is a known album used to label sidebar groups
type Album struct {
	ID     string
	Title  string
	Artist string
}

// Catalog resolves display names for attributed origins.
// Lookups return false for ids the client has not seen.
type Catalog interface {
	PlaylistName(id string) (string, bool)
	AlbumName(id string) (string, bool)
}

// StaticCatalog is an in-memory Catalog
type StaticCatalog struct {
	Playlists map[string]Playlist
	Albums    map[string]Album
}

// NewStaticCatalog builds a catalog from known playlists and albums
func NewStaticCatalog(playlists []Playlist, albums []Album) *StaticCatalog {
	c := &StaticCatalog{
		Playlists: make(map[string]Playlist, len(playlists)),
		Albums:    make(map[string]Album, len(albums)),
	}
	for _, p := range playlists {
		c.Playlists[p.ID] = p
	}
	for _, a := range albums {
		c.Albums[a.ID] = a
	}
	return c
}

func (c *StaticCatalog) PlaylistName(id string) (string, bool) {
	if c == nil {
		return "", false
	}
	p, ok := c.Playlists[id]
	return p.Title, ok
}

func (c *StaticCatalog) AlbumName(id string) (string, bool) {
	if c == nil {
		return "", false
	}
	a, ok := c.Albums[id]
	return a.Title, ok
}
