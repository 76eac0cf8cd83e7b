package models

import "time"

// Meetup is a scheduled shared photo-viewing + video session. IDs are opaque
// strings supplied by the caller; a meetup row is created lazily on first
// reference.
type Meetup struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	AlbumID         string    `json:"album_id"`
	AlbumName       string    `json:"album_name"`
	RecordedAt      time.Time `json:"recorded_at"`
	DurationSeconds int       `json:"duration_seconds"`
	PhotoCount      int       `json:"photo_count"`
	VideoRoomID     *string   `json:"video_room_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MeetupInvite assigns a user a role ("host" or "guest") for one meetup.
type MeetupInvite struct {
	MeetupID string    `json:"meetup_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	AddedAt  time.Time `json:"added_at"`
}
