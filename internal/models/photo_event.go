package models

import (
	"time"

	"github.com/google/uuid"
)

// PhotoEvent records one participant navigating the shared view to a photo.
// Events are append-only; ID is a bigserial assigned at append time and is
// the only ordering that matters (TimestampMs is client-supplied and may be
// skewed, it is stored but never used for ordering).
type PhotoEvent struct {
	ID              int64     `json:"id"`
	MeetupID        string    `json:"meetup_id"`
	SessionID       uuid.UUID `json:"session_id"`
	PhotoID         string    `json:"photo_id"`
	PhotoIndex      int       `json:"photo_index"`
	TimestampMs     int64     `json:"timestamp_ms"`
	NavigatorUserID string    `json:"navigator_user_id"`
	ReceivedAt      time.Time `json:"received_at"`
}
