package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frameline/meetups-backend/internal/models"
)

// ErrUnknownMeetup is returned when a session insert references a meetup
// that does not exist. Callers normally ensure the meetup first; this
// covers the residual race with a concurrent meetup delete.
var ErrUnknownMeetup = errors.New("unknown meetup")

// pgFKViolation is the PostgreSQL error code for foreign_key_violation.
const pgFKViolation = "23503"

// Repository is the session registry. Create always inserts a fresh session;
// concurrent "start session" calls for one meetup intentionally produce
// multiple rows and the current one is resolved by recency.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new session with a fresh id and the current timestamp.
func (r *Repository) Create(ctx context.Context, meetupID string) (*models.Session, error) {
	s := &models.Session{
		ID:          uuid.New(),
		MeetupID:    meetupID,
		StartedAtMs: time.Now().UnixMilli(),
	}
	const q = `INSERT INTO sessions (id, meetup_id, started_at_ms) VALUES ($1, $2, $3) RETURNING created_at`
	if err := r.pool.QueryRow(ctx, q, s.ID, s.MeetupID, s.StartedAtMs).Scan(&s.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
			return nil, fmt.Errorf("create session for meetup %s: %w", meetupID, ErrUnknownMeetup)
		}
		return nil, err
	}
	return s, nil
}

// GetByID returns a session by id, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT id, meetup_id, started_at_ms, created_at FROM sessions WHERE id = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.MeetupID, &s.StartedAtMs, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestFor returns the session with the greatest start timestamp for a
// meetup, or nil when none exists.
func (r *Repository) LatestFor(ctx context.Context, meetupID string) (*models.Session, error) {
	const q = `SELECT id, meetup_id, started_at_ms, created_at FROM sessions
		WHERE meetup_id = $1 ORDER BY started_at_ms DESC, created_at DESC LIMIT 1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, meetupID).Scan(&s.ID, &s.MeetupID, &s.StartedAtMs, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
