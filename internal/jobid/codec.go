// Package jobid encodes and decodes download job identifiers.
//
// A job id carries the track id, the quality and, optionally, the playlist or
// album the download was started from:
//
//	playlist:<id>:track:<trackId>:<quality>
//	album:<id>:track:<trackId>:<quality>
//	track:<trackId>:<quality>
//
// downloadGroupPlanned messages only need the origin prefix; the rest of the
// id is ignored (see DecodeOrigin).
//
// Ids are matched byte for byte: surrounding whitespace is part of the id.
//
// Older workers emitted ids without origin separators. Those shapes are listed
// in legacyShapes and nowhere else; they always decode with no origin.
package jobid

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/crate/internal/domain"
)

const (
	segTrack    = "track"
	segAlbum    = "album"
	segPlaylist = "playlist"
	sep         = ":"
)

// Job is the decoded content of a job id
type Job struct {
	TrackID domain.TrackID
	Quality domain.Quality
	Origin  domain.Origin
	Legacy  bool // decoded from a legacy shape
}

// Valid reports whether the job can be attributed to a track.
// Invalid jobs must be ignored for grouping.
func (j Job) Valid() bool {
	return j.TrackID.Valid()
}

// String re-encodes the job in canonical form
func (j Job) String() string {
	return Encode(j.TrackID, j.Quality, j.Origin)
}

// Encode composes a job id. Same inputs always give the same id.
func Encode(trackID domain.TrackID, quality domain.Quality, origin domain.Origin) string {
	var b strings.Builder
	origin = origin.Normalize()
	if origin.IsAttributed() {
		b.WriteString(string(origin.Kind))
		b.WriteString(sep)
		b.WriteString(origin.ID)
		b.WriteString(sep)
	}
	b.WriteString(segTrack)
	b.WriteString(sep)
	b.WriteString(trackID.String())
	b.WriteString(sep)
	b.WriteString(string(quality))
	return b.String()
}

// legacyShapes enumerates every historical job id format still accepted.
// Each pattern captures the track id and, when present, the quality.
var legacyShapes = []*regexp.Regexp{
	regexp.MustCompile(`^dl:(\d+):([A-Za-z0-9_]+)$`),
	regexp.MustCompile(`^download-(\d+)-([A-Za-z0-9_]+)$`),
	regexp.MustCompile(`^(\d+):([A-Za-z0-9_]+)$`),
	regexp.MustCompile(`^(\d+)_([A-Za-z0-9_]+)$`),
	regexp.MustCompile(`^(\d+)$`),
}

// Decode parses a job id. It never fails: unrecognized input yields a Job
// with no track id, no quality and no origin.
func Decode(s string) Job {
	if s == "" {
		return unattributable()
	}

	if job, ok := decodeCanonical(s); ok {
		return job
	}
	if job, ok := decodeLegacy(s); ok {
		return job
	}
	return unattributable()
}

// DecodeOrigin reads only the playlist:<id>: or album:<id>: prefix of s.
// Used for group plans, whose track segment may be a placeholder.
func DecodeOrigin(s string) domain.Origin {
	parts := strings.SplitN(s, sep, 3)
	if len(parts) < 3 || parts[1] == "" {
		return domain.NoOrigin()
	}
	switch parts[0] {
	case segPlaylist:
		return domain.PlaylistOrigin(parts[1])
	case segAlbum:
		return domain.AlbumOrigin(parts[1])
	}
	return domain.NoOrigin()
}

func decodeCanonical(s string) (Job, bool) {
	parts := strings.Split(s, sep)
	switch len(parts) {
	case 3:
		if parts[0] != segTrack {
			return Job{}, false
		}
		id, ok := parseTrack(parts[1])
		if !ok {
			return Job{}, false
		}
		return Job{TrackID: id, Quality: domain.Quality(parts[2]), Origin: domain.NoOrigin()}, true

	case 5:
		if parts[2] != segTrack || parts[1] == "" {
			return Job{}, false
		}
		var origin domain.Origin
		switch parts[0] {
		case segPlaylist:
			origin = domain.PlaylistOrigin(parts[1])
		case segAlbum:
			origin = domain.AlbumOrigin(parts[1])
		default:
			return Job{}, false
		}
		id, ok := parseTrack(parts[3])
		if !ok {
			return Job{}, false
		}
		return Job{TrackID: id, Quality: domain.Quality(parts[4]), Origin: origin}, true
	}
	return Job{}, false
}

func decodeLegacy(s string) (Job, bool) {
	for _, re := range legacyShapes {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		id, ok := parseTrack(m[1])
		if !ok {
			return Job{}, false
		}
		job := Job{TrackID: id, Origin: domain.NoOrigin(), Legacy: true}
		if len(m) > 2 {
			job.Quality = domain.Quality(m[2])
		}
		return job, true
	}
	return Job{}, false
}

func parseTrack(s string) (domain.TrackID, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	id := domain.TrackID(n)
	return id, id.Valid()
}

func unattributable() Job {
	return Job{Origin: domain.NoOrigin()}
}
