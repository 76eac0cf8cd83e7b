package photoevents

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/photosync"
	"github.com/frameline/meetups-backend/pkg/response"
)

// AppendRequest is the body for POST /meetups/:id/photo-events.
type AppendRequest struct {
	SessionID       string `json:"session_id" binding:"required"`
	PhotoID         string `json:"photo_id" binding:"required"`
	PhotoIndex      *int   `json:"photo_index" binding:"required"`
	TimestampMs     int64  `json:"timestamp_ms"`
	NavigatorUserID string `json:"navigator_user_id"`
}

// Handler handles photo event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a photo events handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Append handles POST /meetups/:id/photo-events. Responds 204 on success and
// 400 when the session does not exist or the index is negative.
func (h *Handler) Append(c *gin.Context) {
	meetupID := c.Param("id")

	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		response.BadRequest(c, "invalid session_id")
		return
	}
	if *req.PhotoIndex < 0 {
		response.BadRequest(c, "photo_index must be non-negative")
		return
	}

	ev := &models.PhotoEvent{
		MeetupID:        meetupID,
		SessionID:       sessionID,
		PhotoID:         req.PhotoID,
		PhotoIndex:      *req.PhotoIndex,
		TimestampMs:     req.TimestampMs,
		NavigatorUserID: req.NavigatorUserID,
	}
	if err := h.repo.Append(c.Request.Context(), ev); err != nil {
		if errors.Is(err, photosync.ErrUnknownSession) {
			response.BadRequest(c, "unknown session_id")
			return
		}
		h.logger.Error("append photo event failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to append event")
		return
	}

	h.logger.Info("photo event appended",
		zap.String("meetup_id", meetupID),
		zap.String("session_id", sessionID.String()),
		zap.Int("photo_index", ev.PhotoIndex),
		zap.String("navigator", ev.NavigatorUserID))
	response.NoContent(c)
}
