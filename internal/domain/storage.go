package domain

import "time"

// RecordDocument is the persisted shape of a DownloadRecord.
// Every field is optional; missing fields decode as absent.
type RecordDocument struct {
	Quality   string         `json:"quality,omitempty"`
	FileURI   string         `json:"fileUri,omitempty"`
	Origin    *Origin        `json:"origin,omitempty"`
	Metadata  *TrackMetadata `json:"metadata,omitempty"`
	Status    string         `json:"status,omitempty"`
	UpdatedAt int64          `json:"updatedAt,omitempty"`
}

// SnapshotDocument is the persistence boundary: decimal track id -> record
type SnapshotDocument map[string]RecordDocument

// SnapshotStore persists snapshot documents. The library store itself performs no I/O.
type SnapshotStore interface {
	Save(doc SnapshotDocument) error
	Load() (SnapshotDocument, error)
	SavedAt() (time.Time, bool)
	Clear() error
	Close() error
}
