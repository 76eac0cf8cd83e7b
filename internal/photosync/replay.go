package photosync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/frameline/meetups-backend/internal/models"
)

// EventLog is the durable, append-only store of navigation events. Append
// must reject unknown sessions with ErrUnknownSession and make events
// visible to subsequent EventsFor calls (read-your-writes in process).
// EventsFor returns events in receipt order and must be safe to call
// concurrently with Append.
type EventLog interface {
	Append(ctx context.Context, ev *models.PhotoEvent) error
	EventsFor(ctx context.Context, sessionID uuid.UUID) ([]models.PhotoEvent, error)
}

// SessionFinder resolves the current (most recently started) session for a
// meetup, or nil when none exists.
type SessionFinder interface {
	LatestFor(ctx context.Context, meetupID string) (*models.Session, error)
}

// Broadcaster fans a navigation message out to all participants of a meetup
// with best-effort delivery. Loss, duplication and cross-sender reordering
// are all tolerated; reconciliation is the authoritative catch-up path.
type Broadcaster interface {
	Publish(meetupID, event string, payload interface{})
}

// CurrentState replays the latest session's event log and returns the photo
// index the group is on. The session is nil when the meetup has no session
// yet. An empty log yields index 0.
func CurrentState(ctx context.Context, sessions SessionFinder, log EventLog, meetupID string) (int, *models.Session, error) {
	sess, err := sessions.LatestFor(ctx, meetupID)
	if err != nil {
		return 0, nil, fmt.Errorf("latest session for %s: %w", meetupID, err)
	}
	if sess == nil {
		return 0, nil, nil
	}
	events, err := log.EventsFor(ctx, sess.ID)
	if err != nil {
		return 0, nil, fmt.Errorf("events for session %s: %w", sess.ID, err)
	}
	if len(events) == 0 {
		return 0, sess, nil
	}
	return events[len(events)-1].PhotoIndex, sess, nil
}
