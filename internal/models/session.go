package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one timed viewing instance of a meetup. Immutable after create;
// several may exist per meetup and the one with the greatest StartedAtMs is
// considered current.
type Session struct {
	ID          uuid.UUID `json:"session_id"`
	MeetupID    string    `json:"meetup_id"`
	StartedAtMs int64     `json:"recording_start_timestamp_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionStats is the worker-computed aggregate over a session's photo events.
type SessionStats struct {
	SessionID          uuid.UUID `json:"session_id"`
	MeetupID           string    `json:"meetup_id"`
	EventCount         int       `json:"event_count"`
	DistinctNavigators int       `json:"distinct_navigators"`
	LastPhotoIndex     int       `json:"last_photo_index"`
	ComputedAt         time.Time `json:"computed_at"`
}
