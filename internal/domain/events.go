package domain

// WorkerEventType enumerates lifecycle events reported by the download worker
type WorkerEventType string

const (
	DownloadRequested    WorkerEventType = "downloadRequested"
	DownloadFinished     WorkerEventType = "downloadFinished"
	DownloadFailed       WorkerEventType = "downloadFailed"
	DownloadCancelled    WorkerEventType = "downloadCancelled"
	DownloadGroupPlanned WorkerEventType = "downloadGroupPlanned"
)

// Known reports whether t is one of the worker event types
func (t WorkerEventType) Known() bool {
	switch t {
	case DownloadRequested, DownloadFinished, DownloadFailed, DownloadCancelled, DownloadGroupPlanned:
		return true
	}
	return false
}

// WorkerEvent is a decoded worker message as seen by bus subscribers.
// Job fields come from the job id; TrackID is 0 when the job is unattributable.
type WorkerEvent struct {
	Type        WorkerEventType
	JobID       string
	TrackID     TrackID
	Quality     Quality
	Origin      Origin
	FileURI     string
	ErrorReason string
	GroupSize   int
}

// StoreChange is emitted by the store. Bulk changes carry no track id.
type StoreChange struct {
	TrackID TrackID
	Bulk    bool
}

// Route describes the active UI surface
type Route struct {
	RouteName  string `json:"routeName"`
	EntityType string `json:"entityType,omitempty"`
	EntityID   string `json:"entityId,omitempty"`
}

// HasEntity returns true when the route points at a concrete entity
func (r Route) HasEntity() bool {
	return r.EntityID != ""
}
