package hms

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/meetups"
	"github.com/frameline/meetups-backend/internal/middleware"
	"github.com/frameline/meetups-backend/pkg/response"
)

// Handler issues 100ms app tokens for meetup participants.
type Handler struct {
	tokens        *TokenService
	meetupRepo    *meetups.Repository
	defaultRoomID string
	logger        *zap.Logger
}

// NewHandler creates a token handler. defaultRoomID is used for meetups that
// were never scheduled with their own room.
func NewHandler(tokens *TokenService, meetupRepo *meetups.Repository, defaultRoomID string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tokens:        tokens,
		meetupRepo:    meetupRepo,
		defaultRoomID: defaultRoomID,
		logger:        logger,
	}
}

// AuthToken handles GET /meetups/:id/auth-token. The caller must be invited
// to the meetup; the signed token carries their per-meetup role.
func (h *Handler) AuthToken(c *gin.Context) {
	meetupID := c.Param("id")
	userID := c.GetString(middleware.ContextUserID)
	ctx := c.Request.Context()

	m, err := h.meetupRepo.GetOrCreate(ctx, meetupID)
	if err != nil {
		h.logger.Error("get meetup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load meetup")
		return
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		response.Unauthorized(c, "invalid user identity")
		return
	}
	role, err := h.meetupRepo.RoleFor(ctx, meetupID, uid)
	if err != nil {
		h.logger.Error("invite lookup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to resolve invite")
		return
	}
	if role == "" {
		response.Forbidden(c, "not invited to this meetup")
		return
	}

	roomID := h.defaultRoomID
	if m.VideoRoomID != nil {
		roomID = *m.VideoRoomID
	}
	if roomID == "" {
		response.ServiceUnavailable(c, "no video room available for this meetup")
		return
	}

	token, err := h.tokens.Generate(roomID, userID, role)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, gin.H{
		"token":   token,
		"room_id": roomID,
		"user_id": userID,
		"role":    role,
	})
}
