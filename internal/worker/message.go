// Package worker connects the out-of-process download worker to the core.
package worker

import (
	"encoding/json"
	"fmt"

	"github.com/mmcdole/crate/internal/domain"
)

// Message is the wire shape of a worker event, one JSON object per line
type Message struct {
	Type        domain.WorkerEventType `json:"type"`
	JobID       string                 `json:"jobId"`
	FileURI     string                 `json:"fileUri,omitempty"`
	ErrorReason string                 `json:"errorReason,omitempty"`
	GroupSize   int                    `json:"groupSize,omitempty"`
}

// ParseMessage decodes one wire message
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode worker message: %w", err)
	}
	if !msg.Type.Known() {
		return Message{}, fmt.Errorf("%w: %q", domain.ErrUnknownMessage, msg.Type)
	}
	return msg, nil
}

// Encode renders msg in wire form
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
