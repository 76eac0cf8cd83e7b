package photosync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/models"
)

const (
	// appendAttempts bounds retries on the durable-append leg.
	appendAttempts = 3
	// appendBackoff is the delay between append attempts.
	appendBackoff = 10 * time.Second
	// appendTimeout bounds a single append attempt.
	appendTimeout = 5 * time.Second
)

// Coordinator keeps one participant's displayed photo index consistent with
// the group's latest agreed navigation. Local navigation is applied
// optimistically and never rolled back; the persist and broadcast legs run
// asynchronously and their failure is a non-fatal warning. Remote
// navigation is last-write-wins. Reconciliation replays the durable log and
// never trusts cached local state.
type Coordinator struct {
	participantID string
	meetupID      string
	photoCount    int

	log         EventLog
	sessions    SessionFinder
	broadcaster Broadcaster
	logger      *zap.Logger

	mu           sync.Mutex
	sessionID    uuid.UUID
	hasSession   bool
	currentIndex int

	reconcileSeq atomic.Int64
	inflight     sync.WaitGroup
}

// NewCoordinator creates a coordinator for one connected participant.
// photoCount bounds valid navigation indices ([0, photoCount)).
func NewCoordinator(participantID, meetupID string, photoCount int, log EventLog, sessions SessionFinder, b Broadcaster, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		participantID: participantID,
		meetupID:      meetupID,
		photoCount:    photoCount,
		log:           log,
		sessions:      sessions,
		broadcaster:   b,
		logger:        logger,
	}
}

// CurrentIndex returns the locally displayed photo index.
func (c *Coordinator) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

// SetSession binds the coordinator to an explicitly started session.
func (c *Coordinator) SetSession(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
	c.hasSession = true
}

// NavigateTo applies a local navigation. The display index is updated
// synchronously; the durable append (bounded retry) and the broadcast are
// fire-and-forget. Returns a ValidationError for an out-of-range index and
// ErrNoActiveSession when no session is bound; otherwise nil immediately.
func (c *Coordinator) NavigateTo(photoID string, photoIndex int) error {
	if photoID == "" {
		return &ValidationError{Field: "photoId", Reason: "empty"}
	}
	if photoIndex < 0 || photoIndex >= c.photoCount {
		return &ValidationError{Field: "photoIndex", Reason: "out of range"}
	}

	c.mu.Lock()
	if !c.hasSession {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	sessionID := c.sessionID
	c.currentIndex = photoIndex
	c.mu.Unlock()

	now := time.Now().UnixMilli()
	ev := &models.PhotoEvent{
		MeetupID:        c.meetupID,
		SessionID:       sessionID,
		PhotoID:         photoID,
		PhotoIndex:      photoIndex,
		TimestampMs:     now,
		NavigatorUserID: c.participantID,
	}
	msg := SyncMessage{
		Type:        EventNavigatePhoto,
		PhotoID:     photoID,
		PhotoIndex:  photoIndex,
		NavigatorID: c.participantID,
		Timestamp:   now,
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.broadcaster.Publish(c.meetupID, EventNavigatePhoto, msg)
		c.persistWithRetry(ev)
	}()
	return nil
}

// persistWithRetry appends the event with a bounded retry. Unknown-session
// rejections are client errors and never retried. Exhausted retries are a
// non-fatal warning; the optimistic local state stays.
func (c *Coordinator) persistWithRetry(ev *models.PhotoEvent) {
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(appendBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		err = c.log.Append(ctx, ev)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, ErrUnknownSession) {
			c.logger.Warn("navigation event rejected",
				zap.String("meetup_id", c.meetupID),
				zap.String("session_id", ev.SessionID.String()),
				zap.Error(err))
			return
		}
	}
	c.logger.Warn("navigation event not persisted",
		zap.String("meetup_id", c.meetupID),
		zap.Int("photo_index", ev.PhotoIndex),
		zap.Error(err))
}

// OnRemoteNavigation applies a navigation delivered by the broadcaster.
// Own echoes are recognized by navigator id and ignored. Malformed or
// out-of-range messages are dropped with a log, never surfaced. Valid
// messages unconditionally overwrite the local index (last write wins).
// Returns true when the message changed local state and should be rendered.
func (c *Coordinator) OnRemoteNavigation(msg *SyncMessage) bool {
	if msg == nil || msg.NavigatorID == c.participantID {
		return false
	}
	if msg.Type != EventNavigatePhoto || msg.PhotoID == "" || msg.PhotoIndex < 0 || msg.PhotoIndex >= c.photoCount {
		c.logger.Debug("dropping malformed navigation",
			zap.String("meetup_id", c.meetupID),
			zap.Int("photo_index", msg.PhotoIndex),
			zap.String("photo_id", msg.PhotoID))
		return false
	}
	c.mu.Lock()
	c.currentIndex = msg.PhotoIndex
	c.mu.Unlock()
	return true
}

// ReconcileOnJoin recovers the shared state on (re)connect: latest session
// for the meetup, replay of its log, last event's index (0 when the log is
// empty or no session exists). Re-entrant; when calls overlap, the most
// recent call wins. On failure the display falls back to index 0 and the
// error is returned for the caller to schedule another attempt.
func (c *Coordinator) ReconcileOnJoin(ctx context.Context, meetupID string) (int, error) {
	seq := c.reconcileSeq.Add(1)

	idx, sess, err := CurrentState(ctx, c.sessions, c.log, meetupID)

	// Staleness is decided under the same lock as the write: a newer
	// reconcile that completes between a separate check and the write would
	// otherwise be clobbered by this one's result.
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.reconcileSeq.Load() {
		// A newer reconcile is in flight or finished; keep its result.
		return c.currentIndex, nil
	}
	if err != nil {
		c.currentIndex = 0
		return 0, err
	}

	c.currentIndex = idx
	if sess != nil {
		c.sessionID = sess.ID
		c.hasSession = true
	}
	return idx, nil
}

// Wait blocks until in-flight persist/broadcast legs finish. Called on
// participant disconnect so pending appends are not abandoned mid-write.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}
