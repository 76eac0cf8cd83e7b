package albums

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frameline/meetups-backend/internal/models"
)

// Repository reads the static photo catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an albums repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AlbumExists reports whether the album is in the catalog.
func (r *Repository) AlbumExists(ctx context.Context, albumID string) (bool, error) {
	const q = `SELECT 1 FROM albums WHERE id = $1`
	var one int
	err := r.pool.QueryRow(ctx, q, albumID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PhotosForAlbum returns the album's photos in catalog order.
func (r *Repository) PhotosForAlbum(ctx context.Context, albumID string) ([]models.Photo, error) {
	const q = `SELECT id, album_id, url, thumbnail_url, title, idx, object_key, thumb_key
		FROM photos WHERE album_id = $1 ORDER BY idx`
	rows, err := r.pool.Query(ctx, q, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.AlbumID, &p.URL, &p.ThumbnailURL, &p.Title, &p.Index, &p.ObjectKey, &p.ThumbKey); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// GetPhoto returns a photo by id, or nil when unknown.
func (r *Repository) GetPhoto(ctx context.Context, photoID string) (*models.Photo, error) {
	const q = `SELECT id, album_id, url, thumbnail_url, title, idx, object_key, thumb_key
		FROM photos WHERE id = $1`
	var p models.Photo
	err := r.pool.QueryRow(ctx, q, photoID).Scan(&p.ID, &p.AlbumID, &p.URL, &p.ThumbnailURL, &p.Title, &p.Index, &p.ObjectKey, &p.ThumbKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
