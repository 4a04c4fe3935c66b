package domain

import (
	"fmt"
	"strconv"
	"time"
)

// TrackID is the stable identity of a track across every context
type TrackID int64

// Valid reports whether the id can address a record (positive integers only)
func (id TrackID) Valid() bool {
	return id > 0
}

// String returns the decimal form used as persistence key
func (id TrackID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseTrackID parses a decimal track id, rejecting non-positive values
func ParseTrackID(s string) (TrackID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	id := TrackID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return id, nil
}

// Quality identifies the encoding a track was downloaded at ("flac", "mp3_320", ...)
type Quality string

// OriginKind distinguishes the grouping context a download was started from
type OriginKind string

const (
	OriginNone     OriginKind = "none"
	OriginAlbum    OriginKind = "album"
	OriginPlaylist OriginKind = "playlist"
)

// Origin is the playlist/album/none context that explains why a track was downloaded
type Origin struct {
	Kind OriginKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// NoOrigin returns the unattributed origin
func NoOrigin() Origin { return Origin{Kind: OriginNone} }

// AlbumOrigin returns an origin attributed to an album
func AlbumOrigin(id string) Origin { return Origin{Kind: OriginAlbum, ID: id} }

// PlaylistOrigin returns an origin attributed to a playlist
func PlaylistOrigin(id string) Origin { return Origin{Kind: OriginPlaylist, ID: id} }

// IsAttributed returns true for album and playlist origins with an id.
// The zero Origin counts as none.
func (o Origin) IsAttributed() bool {
	return (o.Kind == OriginAlbum || o.Kind == OriginPlaylist) && o.ID != ""
}

// Normalize maps the zero value and malformed origins onto NoOrigin
func (o Origin) Normalize() Origin {
	if !o.IsAttributed() {
		return NoOrigin()
	}
	return o
}

// Key returns "kind:id" for attributed origins and "none" otherwise
func (o Origin) Key() string {
	if !o.IsAttributed() {
		return string(OriginNone)
	}
	return string(o.Kind) + ":" + o.ID
}

func (o Origin) String() string { return o.Key() }

// DownloadStatus is the UI-facing lifecycle state of a record
type DownloadStatus string

const (
	StatusUnknown     DownloadStatus = ""
	StatusDownloading DownloadStatus = "downloading"
	StatusComplete    DownloadStatus = "complete"
	StatusFailed      DownloadStatus = "failed"
	StatusCancelled   DownloadStatus = "cancelled"
)

// IsTerminal returns true for states the worker will not advance on its own
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// TrackMetadata holds descriptive fields. An empty string or zero number means unknown.
type TrackMetadata struct {
	Title       string        `json:"title,omitempty"`
	Artist      string        `json:"artist,omitempty"`
	AlbumArtist string        `json:"albumArtist,omitempty"`
	Album       string        `json:"album,omitempty"`
	TrackNumber int           `json:"trackNumber,omitempty"`
	Year        int           `json:"year,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	CoverURL    string        `json:"coverUrl,omitempty"`
}

// IsEmpty returns true when no field is known
func (m TrackMetadata) IsEmpty() bool {
	return m == TrackMetadata{}
}

// DisplayArtist prefers the album artist for grouping purposes
func (m TrackMetadata) DisplayArtist() string {
	if m.AlbumArtist != "" {
		return m.AlbumArtist
	}
	return m.Artist
}

// DownloadRecord is the merged ownership state of one track
type DownloadRecord struct {
	TrackID   TrackID
	Quality   Quality
	FileURI   string // empty while the download is in flight
	Origin    Origin
	Metadata  TrackMetadata
	Status    DownloadStatus
	UpdatedAt time.Time
}

// IsComplete returns true once a file exists for the track
func (r DownloadRecord) IsComplete() bool {
	return r.FileURI != ""
}

// IsInFlight returns true while no file exists and the job has not terminated
func (r DownloadRecord) IsInFlight() bool {
	return r.FileURI == "" && !r.Status.IsTerminal()
}

// DisplayTitle returns the title, falling back to the track id
func (r DownloadRecord) DisplayTitle() string {
	if r.Metadata.Title != "" {
		return r.Metadata.Title
	}
	return "Track " + r.TrackID.String()
}

// RecordPatch is a partial DownloadRecord applied by Store.Upsert.
// Zero-valued fields mean "absent".
type RecordPatch struct {
	Quality  Quality
	FileURI  string
	Origin   Origin
	Metadata TrackMetadata
	Status   DownloadStatus
}

// Snapshot maps track ids to records. Copies handed out by the store are read-only views.
type Snapshot map[TrackID]DownloadRecord

// EntityBinding associates a rendered entity with the track ids it displays.
// Owned by the subscriber that renders the entity.
type EntityBinding struct {
	EntityID   string
	EntityType string // "album", "playlist", "liked", "downloads", ...
	TrackIDs   []TrackID
	Actions    []string
}

// Contains reports whether the binding displays the given track
func (b EntityBinding) Contains(id TrackID) bool {
	for _, t := range b.TrackIDs {
		if t == id {
			return true
		}
	}
	return false
}
