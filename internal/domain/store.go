package domain

// LibraryReader is the read side of the local library store.
// Views read from it on every refresh; they never cache records.
type LibraryReader interface {
	Get(id TrackID) (DownloadRecord, bool)
	GetAll() Snapshot
	Len() int
}

// LibraryStore is the canonical mapping from track id to merged download record.
// All mutation happens on the single UI thread; notifications are synchronous.
type LibraryStore interface {
	LibraryReader

	Upsert(id TrackID, patch RecordPatch) error
	Remove(id TrackID) error

	// Signals a batch of mutations that bypassed Upsert (e.g. a rescan)
	NotifyBulk()

	// === Persistence boundary ===
	Load(doc SnapshotDocument) LoadResult
	Serialize() SnapshotDocument

	// === Change hooks ===
	OnChange(fn func(TrackID)) (dispose func())
	OnBulkChange(fn func()) (dispose func())
}

// LoadResult summarizes a Load call
type LoadResult struct {
	Loaded  int
	Skipped int
}

// FrameSource arms callbacks at the next rendering-frame boundary.
// Callbacks requested while a frame runs fire at the following boundary.
type FrameSource interface {
	RequestFrame(fn func())
}
