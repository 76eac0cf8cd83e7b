package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Clip is a recorded fragment of a meetup tied to a photo, produced by the
// clip-ingest worker from provider recordings.
type Clip struct {
	ID              uuid.UUID       `json:"id"`
	PhotoID         string          `json:"photo_id"`
	MeetupID        string          `json:"meetup_id"`
	ObjectKey       string          `json:"-"`
	ThumbnailKey    string          `json:"-"`
	ClipURL         string          `json:"clip_url"`
	ThumbnailURL    string          `json:"thumbnail_url"`
	DurationSeconds int             `json:"duration_seconds"`
	Transcript      json.RawMessage `json:"transcript,omitempty"`
	RecordedAt      time.Time       `json:"recorded_at"`
	CreatedAt       time.Time       `json:"created_at"`
}
