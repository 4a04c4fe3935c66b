package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrInvalidIdentifier indicates a malformed track id or job id
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrRecordNotFound indicates no download record exists for the track
	ErrRecordNotFound = errors.New("download record not found")

	// ErrNoActiveEntity indicates a subscriber had nothing bound when asked to refresh
	ErrNoActiveEntity = errors.New("no active entity")

	// ErrUnknownMessage indicates a worker message with an unrecognized type
	ErrUnknownMessage = errors.New("unknown worker message type")
)

// RefreshError reports a failed subscriber refresh together with its trigger
type RefreshError struct {
	Subscriber string
	Mode       string // "all" or "targets"
	IDs        []TrackID
	Err        error
}

func (e *RefreshError) Error() string {
	if e.Mode == "all" {
		return fmt.Sprintf("%s: refresh all: %v", e.Subscriber, e.Err)
	}
	return fmt.Sprintf("%s: refresh %v: %v", e.Subscriber, e.IDs, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
