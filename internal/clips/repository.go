package clips

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frameline/meetups-backend/internal/models"
)

// Repository persists meetup clips.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clips repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a clip.
func (r *Repository) Create(ctx context.Context, clip *models.Clip) error {
	const q = `INSERT INTO clips (id, photo_id, meetup_id, object_key, thumbnail_key, clip_url, thumbnail_url, duration_seconds, transcript, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q,
		clip.ID, clip.PhotoID, clip.MeetupID, clip.ObjectKey, clip.ThumbnailKey,
		clip.ClipURL, clip.ThumbnailURL, clip.DurationSeconds, clip.Transcript, clip.RecordedAt,
	).Scan(&clip.CreatedAt)
}

// ListByPhoto returns all clips recorded against a photo, newest first.
func (r *Repository) ListByPhoto(ctx context.Context, photoID string) ([]models.Clip, error) {
	const q = `SELECT id, photo_id, meetup_id, object_key, thumbnail_key, clip_url, thumbnail_url, duration_seconds, transcript, recorded_at, created_at
		FROM clips WHERE photo_id = $1 ORDER BY recorded_at DESC`
	rows, err := r.pool.Query(ctx, q, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Clip
	for rows.Next() {
		var cl models.Clip
		if err := rows.Scan(&cl.ID, &cl.PhotoID, &cl.MeetupID, &cl.ObjectKey, &cl.ThumbnailKey,
			&cl.ClipURL, &cl.ThumbnailURL, &cl.DurationSeconds, &cl.Transcript, &cl.RecordedAt, &cl.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, cl)
	}
	return list, rows.Err()
}
