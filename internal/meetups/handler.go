package meetups

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/middleware"
	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/photoevents"
	"github.com/frameline/meetups-backend/internal/sessions"
	"github.com/frameline/meetups-backend/pkg/response"
)

// RoomProvisioner provisions a video room for a meetup with the provider.
type RoomProvisioner interface {
	EnsureRoom(ctx context.Context, meetup *models.Meetup) (string, error)
}

// Handler handles meetup HTTP endpoints.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
	statsRepo   *sessions.StatsRepository
	eventRepo   *photoevents.Repository
	rooms       RoomProvisioner
	logger      *zap.Logger
}

// NewHandler creates a meetups handler. rooms may be nil when no video
// provider is configured; Schedule then reports the provider unavailable.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository, statsRepo *sessions.StatsRepository, eventRepo *photoevents.Repository, rooms RoomProvisioner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:        repo,
		sessionRepo: sessionRepo,
		statsRepo:   statsRepo,
		eventRepo:   eventRepo,
		rooms:       rooms,
		logger:      logger,
	}
}

// Get handles GET /meetups/:id. Unknown ids are created lazily with the
// demo album so a shared link always resolves.
func (h *Handler) Get(c *gin.Context) {
	m, err := h.repo.GetOrCreate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("get meetup failed", zap.Error(err), zap.String("meetup_id", c.Param("id")))
		response.Internal(c, "failed to load meetup")
		return
	}
	response.OK(c, m)
}

// Schedule handles POST /meetups/:id/schedule. Provisions a video room for
// the meetup with the provider and attaches it exactly once; a meetup that
// already has a room keeps it.
func (h *Handler) Schedule(c *gin.Context) {
	meetupID := c.Param("id")

	m, err := h.repo.GetOrCreate(c.Request.Context(), meetupID)
	if err != nil {
		h.logger.Error("get meetup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load meetup")
		return
	}
	if m.VideoRoomID != nil {
		response.OK(c, gin.H{"meetup_id": m.ID, "video_room_id": *m.VideoRoomID})
		return
	}
	if h.rooms == nil {
		response.ServiceUnavailable(c, "video provider not configured")
		return
	}

	roomID, err := h.rooms.EnsureRoom(c.Request.Context(), m)
	if err != nil {
		h.logger.Error("provision room failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.ServiceUnavailable(c, "failed to provision video room")
		return
	}
	attached, err := h.repo.AttachVideoRoom(c.Request.Context(), meetupID, roomID)
	if err != nil {
		h.logger.Error("attach room failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to attach video room")
		return
	}

	h.logger.Info("meetup scheduled", zap.String("meetup_id", meetupID), zap.String("room_id", attached))
	response.OK(c, gin.H{"meetup_id": m.ID, "video_room_id": attached})
}

// Invite handles POST /meetups/:id/invites. Host only.
func (h *Handler) Invite(c *gin.Context) {
	meetupID := c.Param("id")

	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Role != string(models.RoleHost) && req.Role != string(models.RoleGuest) {
		response.BadRequest(c, "role must be host or guest")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user_id")
		return
	}

	if _, err := h.repo.GetOrCreate(c.Request.Context(), meetupID); err != nil {
		h.logger.Error("get meetup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load meetup")
		return
	}
	if err := h.repo.Invite(c.Request.Context(), meetupID, userID, req.Role); err != nil {
		h.logger.Error("invite failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to invite user")
		return
	}

	h.logger.Info("user invited",
		zap.String("meetup_id", meetupID),
		zap.String("user_id", userID.String()),
		zap.String("role", req.Role),
		zap.String("invited_by", c.GetString(middleware.ContextUserID)))
	response.Created(c, gin.H{"meetup_id": meetupID, "user_id": userID, "role": req.Role})
}

// Summary handles GET /meetups/:id/summary. Reports the meetup, its invited
// participants and the latest session's aggregates. Prefers the worker's
// stored aggregate and falls back to a live count when the worker has not
// run yet.
func (h *Handler) Summary(c *gin.Context) {
	meetupID := c.Param("id")
	ctx := c.Request.Context()

	m, err := h.repo.GetByID(ctx, meetupID)
	if err != nil {
		h.logger.Error("get meetup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load meetup")
		return
	}
	if m == nil {
		response.NotFound(c, "meetup not found")
		return
	}

	participants, err := h.repo.Participants(ctx, meetupID)
	if err != nil {
		h.logger.Error("list participants failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load participants")
		return
	}

	out := gin.H{
		"meetup_id":    m.ID,
		"title":        m.Title,
		"album_id":     m.AlbumID,
		"album_name":   m.AlbumName,
		"photo_count":  m.PhotoCount,
		"participants": participants,
		"session":      nil,
	}

	sess, err := h.sessionRepo.LatestFor(ctx, meetupID)
	if err != nil {
		h.logger.Error("latest session lookup failed", zap.Error(err), zap.String("meetup_id", meetupID))
		response.Internal(c, "failed to load session")
		return
	}
	if sess != nil {
		st, err := h.statsRepo.GetBySession(ctx, sess.ID)
		if err != nil {
			h.logger.Error("stats lookup failed", zap.Error(err), zap.String("session_id", sess.ID.String()))
			response.Internal(c, "failed to load session stats")
			return
		}
		if st == nil {
			st, err = h.eventRepo.StatsFor(ctx, sess.ID)
			if err != nil {
				h.logger.Error("live stats failed", zap.Error(err), zap.String("session_id", sess.ID.String()))
				response.Internal(c, "failed to compute session stats")
				return
			}
		}
		out["session"] = gin.H{
			"session_id":                   sess.ID,
			"recording_start_timestamp_ms": sess.StartedAtMs,
			"event_count":                  st.EventCount,
			"distinct_navigators":          st.DistinctNavigators,
			"last_photo_index":             st.LastPhotoIndex,
		}
	}

	response.OK(c, out)
}
