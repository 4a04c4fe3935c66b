package library

import (
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

// mergeRecord applies patch to existing field by field:
//   - FileURI: incoming if present, else existing (complete never regresses)
//   - Origin: incoming only if attributed (attribution is never demoted)
//   - Metadata: per field, incoming if non-empty
//   - Quality: incoming if present
//   - Status: complete whenever a file exists, otherwise incoming if present
func mergeRecord(existing domain.DownloadRecord, found bool, id domain.TrackID, patch domain.RecordPatch) domain.DownloadRecord {
	out := existing
	if !found {
		out = domain.DownloadRecord{TrackID: id, Origin: domain.NoOrigin()}
	}
	out.TrackID = id

	if patch.FileURI != "" {
		out.FileURI = patch.FileURI
	}
	if incoming := patch.Origin.Normalize(); incoming.IsAttributed() {
		out.Origin = incoming
	} else {
		out.Origin = out.Origin.Normalize()
	}
	if patch.Quality != "" {
		out.Quality = patch.Quality
	}
	out.Metadata = mergeMetadata(out.Metadata, patch.Metadata)

	switch {
	case out.FileURI != "":
		out.Status = domain.StatusComplete
	case patch.Status != domain.StatusUnknown:
		out.Status = patch.Status
	}
	return out
}

func mergeMetadata(old, in domain.TrackMetadata) domain.TrackMetadata {
	out := old
	out.Title = preferString(in.Title, old.Title)
	out.Artist = preferString(in.Artist, old.Artist)
	out.AlbumArtist = preferString(in.AlbumArtist, old.AlbumArtist)
	out.Album = preferString(in.Album, old.Album)
	out.CoverURL = preferString(in.CoverURL, old.CoverURL)
	if in.TrackNumber != 0 {
		out.TrackNumber = in.TrackNumber
	}
	if in.Year != 0 {
		out.Year = in.Year
	}
	if in.Duration != 0 {
		out.Duration = in.Duration
	}
	return out
}

func preferString(in, old string) string {
	if in != "" {
		return in
	}
	return old
}

// sameContent compares records ignoring UpdatedAt
func sameContent(a, b domain.DownloadRecord) bool {
	a.UpdatedAt = time.Time{}
	b.UpdatedAt = time.Time{}
	return a == b
}

func fromDocument(id domain.TrackID, d domain.RecordDocument) domain.DownloadRecord {
	rec := domain.DownloadRecord{
		TrackID: id,
		Quality: domain.Quality(d.Quality),
		FileURI: d.FileURI,
		Origin:  domain.NoOrigin(),
		Status:  domain.DownloadStatus(d.Status),
	}
	if d.Origin != nil {
		rec.Origin = d.Origin.Normalize()
	}
	if d.Metadata != nil {
		rec.Metadata = *d.Metadata
	}
	if d.UpdatedAt > 0 {
		rec.UpdatedAt = time.UnixMilli(d.UpdatedAt)
	}
	switch rec.Status {
	case domain.StatusDownloading, domain.StatusComplete, domain.StatusFailed, domain.StatusCancelled:
	default:
		rec.Status = domain.StatusUnknown
	}
	if rec.FileURI != "" {
		rec.Status = domain.StatusComplete
	}
	return rec
}

func toDocument(rec domain.DownloadRecord) domain.RecordDocument {
	d := domain.RecordDocument{
		Quality: string(rec.Quality),
		FileURI: rec.FileURI,
		Status:  string(rec.Status),
	}
	if rec.Origin.IsAttributed() {
		origin := rec.Origin
		d.Origin = &origin
	}
	if !rec.Metadata.IsEmpty() {
		md := rec.Metadata
		d.Metadata = &md
	}
	if !rec.UpdatedAt.IsZero() {
		d.UpdatedAt = rec.UpdatedAt.UnixMilli()
	}
	return d
}
