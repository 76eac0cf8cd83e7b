package photoevents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/photosync"
)

// pgFKViolation is the PostgreSQL error code for foreign_key_violation.
const pgFKViolation = "23503"

// Repository is the durable append-only photo event log, ordered per session
// by the bigserial id assigned at append time (receipt order).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a photo event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a navigation event. An append against a session that was
// never created fails with photosync.ErrUnknownSession and has no effect on
// any other session's log. On success the event is visible to subsequent
// EventsFor calls.
func (r *Repository) Append(ctx context.Context, ev *models.PhotoEvent) error {
	const q = `INSERT INTO photo_events (session_id, meetup_id, photo_id, photo_index, timestamp_ms, navigator_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, received_at`
	err := r.pool.QueryRow(ctx, q, ev.SessionID, ev.MeetupID, ev.PhotoID, ev.PhotoIndex, ev.TimestampMs, ev.NavigatorUserID).
		Scan(&ev.ID, &ev.ReceivedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
			return fmt.Errorf("append event for session %s: %w", ev.SessionID, photosync.ErrUnknownSession)
		}
		return err
	}
	return nil
}

// EventsFor returns the full event sequence for a session in append order
// (empty if none). Safe to call concurrently with Append.
func (r *Repository) EventsFor(ctx context.Context, sessionID uuid.UUID) ([]models.PhotoEvent, error) {
	const q = `SELECT id, meetup_id, session_id, photo_id, photo_index, timestamp_ms, navigator_user_id, received_at
		FROM photo_events WHERE session_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.PhotoEvent
	for rows.Next() {
		var ev models.PhotoEvent
		if err := rows.Scan(&ev.ID, &ev.MeetupID, &ev.SessionID, &ev.PhotoID, &ev.PhotoIndex, &ev.TimestampMs, &ev.NavigatorUserID, &ev.ReceivedAt); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}

// StatsFor aggregates a session's log for the stats worker: event count,
// distinct navigators and the last photo index in receipt order.
func (r *Repository) StatsFor(ctx context.Context, sessionID uuid.UUID) (*models.SessionStats, error) {
	const q = `SELECT COUNT(*), COUNT(DISTINCT navigator_user_id),
		COALESCE((SELECT photo_index FROM photo_events WHERE session_id = $1 ORDER BY id DESC LIMIT 1), 0)
		FROM photo_events WHERE session_id = $1`
	var st models.SessionStats
	st.SessionID = sessionID
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&st.EventCount, &st.DistinctNavigators, &st.LastPhotoIndex)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
