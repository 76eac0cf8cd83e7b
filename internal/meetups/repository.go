package meetups

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frameline/meetups-backend/internal/models"
)

// Defaults for lazily created meetups, matching the demo album seed.
const (
	defaultTitle      = "Memories with Nanny"
	defaultAlbumID    = "album-sanibel-1987"
	defaultAlbumName  = "Sanibel Island Trip (1987)"
	defaultPhotoCount = 12
	defaultDuration   = 47 * 60
)

// Repository handles meetup and invite persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetup repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a meetup by id, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Meetup, error) {
	const q = `SELECT id, title, album_id, album_name, recorded_at, duration_seconds, photo_count, video_room_id, created_at, updated_at
		FROM meetups WHERE id = $1`
	var m models.Meetup
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.Title, &m.AlbumID, &m.AlbumName, &m.RecordedAt, &m.DurationSeconds, &m.PhotoCount, &m.VideoRoomID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate returns the meetup, creating it with demo-album defaults on
// first reference. Concurrent first references are safe: the insert is
// ON CONFLICT DO NOTHING and the row is re-read afterwards.
func (r *Repository) GetOrCreate(ctx context.Context, id string) (*models.Meetup, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}

	const q = `INSERT INTO meetups (id, title, album_id, album_name, recorded_at, duration_seconds, photo_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`
	recordedAt := time.Date(2023, 8, 25, 14, 30, 0, 0, time.UTC)
	if _, err := r.pool.Exec(ctx, q, id, defaultTitle, defaultAlbumID, defaultAlbumName, recordedAt, defaultDuration, defaultPhotoCount); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// AttachVideoRoom sets the meetup's video room id exactly once. A meetup
// that already has a room keeps it; the call reports the room in effect.
func (r *Repository) AttachVideoRoom(ctx context.Context, id, roomID string) (string, error) {
	const q = `UPDATE meetups SET video_room_id = $2, updated_at = NOW()
		WHERE id = $1 AND video_room_id IS NULL`
	if _, err := r.pool.Exec(ctx, q, id, roomID); err != nil {
		return "", err
	}
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if m == nil || m.VideoRoomID == nil {
		return "", errors.New("meetup disappeared during room attach")
	}
	return *m.VideoRoomID, nil
}

// GetByVideoRoom returns the meetup owning a provider room id, or nil.
func (r *Repository) GetByVideoRoom(ctx context.Context, roomID string) (*models.Meetup, error) {
	const q = `SELECT id, title, album_id, album_name, recorded_at, duration_seconds, photo_count, video_room_id, created_at, updated_at
		FROM meetups WHERE video_room_id = $1`
	var m models.Meetup
	err := r.pool.QueryRow(ctx, q, roomID).Scan(&m.ID, &m.Title, &m.AlbumID, &m.AlbumName, &m.RecordedAt, &m.DurationSeconds, &m.PhotoCount, &m.VideoRoomID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Invite upserts a user's role for a meetup.
func (r *Repository) Invite(ctx context.Context, meetupID string, userID uuid.UUID, role string) error {
	const q = `INSERT INTO meetup_invites (meetup_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (meetup_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.pool.Exec(ctx, q, meetupID, userID, role)
	return err
}

// RoleFor returns the user's role for a meetup, or "" when not invited.
func (r *Repository) RoleFor(ctx context.Context, meetupID string, userID uuid.UUID) (string, error) {
	const q = `SELECT role FROM meetup_invites WHERE meetup_id = $1 AND user_id = $2`
	var role string
	err := r.pool.QueryRow(ctx, q, meetupID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// Participants returns the names of users invited to a meetup.
func (r *Repository) Participants(ctx context.Context, meetupID string) ([]string, error) {
	const q = `SELECT u.name FROM meetup_invites i JOIN users u ON u.id = i.user_id
		WHERE i.meetup_id = $1 ORDER BY i.added_at`
	rows, err := r.pool.Query(ctx, q, meetupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
