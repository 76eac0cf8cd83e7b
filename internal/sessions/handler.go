package sessions

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/photosync"
	"github.com/frameline/meetups-backend/pkg/response"
)

// Registry is the session store the handler writes to and replays from.
// *Repository implements it.
type Registry interface {
	photosync.SessionFinder
	Create(ctx context.Context, meetupID string) (*models.Session, error)
}

// MeetupDirectory resolves (and lazily creates) the meetup a session
// belongs to. Satisfied by the meetups repository.
type MeetupDirectory interface {
	GetOrCreate(ctx context.Context, id string) (*models.Meetup, error)
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo     Registry
	meetups  MeetupDirectory
	eventLog photosync.EventLog
	logger   *zap.Logger
}

// NewHandler creates a sessions handler. eventLog backs the current-state
// replay for late joiners.
func NewHandler(repo Registry, meetups MeetupDirectory, eventLog photosync.EventLog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, meetups: meetups, eventLog: eventLog, logger: logger}
}

// Create handles POST /meetups/:id/session. Always starts a fresh session.
// A session create is a first reference like any other: the meetup row is
// created lazily before the session is inserted.
func (h *Handler) Create(c *gin.Context) {
	meetupID := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.meetups.GetOrCreate(ctx, meetupID); err != nil {
		h.logger.Error("get meetup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load meetup")
		return
	}

	s, err := h.repo.Create(ctx, meetupID)
	if err != nil {
		if errors.Is(err, ErrUnknownMeetup) {
			response.BadRequest(c, "unknown meetup")
			return
		}
		h.logger.Error("create session failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to create session")
		return
	}
	response.OK(c, gin.H{
		"session_id":                   s.ID,
		"recording_start_timestamp_ms": s.StartedAtMs,
	})
}

// Current handles GET /meetups/:id/session/current. Replays the latest
// session's event log and returns the index of the chronologically last
// event, 0 when the log is empty, or 404 when no session exists.
func (h *Handler) Current(c *gin.Context) {
	meetupID := c.Param("id")

	idx, sess, err := photosync.CurrentState(c.Request.Context(), h.repo, h.eventLog, meetupID)
	if err != nil {
		h.logger.Error("current session replay failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to resolve current session")
		return
	}
	if sess == nil {
		response.NotFound(c, "no active session")
		return
	}
	response.OK(c, gin.H{
		"session_id":          sess.ID,
		"current_photo_index": idx,
	})
}
