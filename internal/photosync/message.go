package photosync

import (
	"encoding/json"
	"fmt"
	"math"
)

// EventNavigatePhoto is the broadcast event name for navigation messages.
// The wire shape matches the web client's PHOTO_SYNC broadcast payload.
const EventNavigatePhoto = "navigate_photo"

// SyncMessage is the canonical photo navigation message exchanged between
// participants. Timestamp is client-supplied milliseconds and untrusted.
type SyncMessage struct {
	Type        string `json:"type"`
	PhotoID     string `json:"photoId"`
	PhotoIndex  int    `json:"photoIndex"`
	NavigatorID string `json:"navigatorId"`
	Timestamp   int64  `json:"timestamp"`
}

// ParseSyncMessage decodes and shape-checks a navigation payload. Remote
// peers are untrusted: the type tag, a non-empty photo id and a finite,
// integral, non-negative index are all required. Range-checking against the
// album happens later in the coordinator, which knows the photo count.
func ParseSyncMessage(raw []byte) (*SyncMessage, error) {
	var wire struct {
		Type        string   `json:"type"`
		PhotoID     string   `json:"photoId"`
		PhotoIndex  *float64 `json:"photoIndex"`
		NavigatorID string   `json:"navigatorId"`
		Timestamp   *float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode sync message: %w", err)
	}
	if wire.Type != EventNavigatePhoto {
		return nil, &ValidationError{Field: "type", Reason: "expected " + EventNavigatePhoto}
	}
	if wire.PhotoID == "" {
		return nil, &ValidationError{Field: "photoId", Reason: "empty"}
	}
	if wire.PhotoIndex == nil {
		return nil, &ValidationError{Field: "photoIndex", Reason: "missing"}
	}
	idx := *wire.PhotoIndex
	if math.IsNaN(idx) || math.IsInf(idx, 0) || idx != math.Trunc(idx) || idx < 0 {
		return nil, &ValidationError{Field: "photoIndex", Reason: "not a non-negative integer"}
	}
	msg := &SyncMessage{
		Type:        EventNavigatePhoto,
		PhotoID:     wire.PhotoID,
		PhotoIndex:  int(idx),
		NavigatorID: wire.NavigatorID,
	}
	if wire.Timestamp != nil {
		msg.Timestamp = int64(*wire.Timestamp)
	}
	return msg, nil
}
