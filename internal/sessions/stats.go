package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frameline/meetups-backend/internal/models"
)

// StatsRepository persists per-session aggregates computed by the worker.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a session stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// Upsert stores the aggregate for a session, replacing any previous run.
func (r *StatsRepository) Upsert(ctx context.Context, st *models.SessionStats) error {
	const q = `INSERT INTO session_stats (session_id, meetup_id, event_count, distinct_navigators, last_photo_index, computed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			event_count = EXCLUDED.event_count,
			distinct_navigators = EXCLUDED.distinct_navigators,
			last_photo_index = EXCLUDED.last_photo_index,
			computed_at = NOW()`
	_, err := r.pool.Exec(ctx, q, st.SessionID, st.MeetupID, st.EventCount, st.DistinctNavigators, st.LastPhotoIndex)
	return err
}

// GetBySession returns the stored aggregate for a session, or nil.
func (r *StatsRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.SessionStats, error) {
	const q = `SELECT session_id, meetup_id, event_count, distinct_navigators, last_photo_index, computed_at
		FROM session_stats WHERE session_id = $1`
	var st models.SessionStats
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&st.SessionID, &st.MeetupID, &st.EventCount, &st.DistinctNavigators, &st.LastPhotoIndex, &st.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
