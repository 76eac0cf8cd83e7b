package hms

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/meetups"
	"github.com/frameline/meetups-backend/internal/sessions"
	"github.com/frameline/meetups-backend/pkg/queue"
	"github.com/frameline/meetups-backend/pkg/response"
)

// 100ms webhook event types we act on.
const (
	eventSessionClose     = "session.close.success"
	eventRecordingSuccess = "beam.recording.success"
)

// WebhookHandler receives 100ms webhooks and turns them into worker jobs.
type WebhookHandler struct {
	meetupRepo  *meetups.Repository
	sessionRepo *sessions.Repository
	queue       *queue.Queue
	secret      string
	logger      *zap.Logger
}

// NewWebhookHandler creates a webhook handler. secret, when set, must match
// the X-Webhook-Secret header on every delivery.
func NewWebhookHandler(meetupRepo *meetups.Repository, sessionRepo *sessions.Repository, q *queue.Queue, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		meetupRepo:  meetupRepo,
		sessionRepo: sessionRepo,
		queue:       q,
		secret:      secret,
		logger:      logger,
	}
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		RoomID          string `json:"room_id"`
		RecordingURL    string `json:"recording_presigned_url"`
		DurationSeconds int    `json:"duration"`
	} `json:"data"`
}

// Handle handles POST /webhooks/hms. Unknown event types and rooms we do not
// track are acknowledged and ignored so the provider does not redeliver.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.secret != "" && c.GetHeader("X-Webhook-Secret") != h.secret {
		response.Unauthorized(c, "invalid webhook secret")
		return
	}

	var ev webhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.BadRequest(c, "invalid webhook payload")
		return
	}

	ctx := c.Request.Context()
	m, err := h.meetupRepo.GetByVideoRoom(ctx, ev.Data.RoomID)
	if err != nil {
		h.logger.Error("webhook room lookup failed", zap.Error(err), zap.String("room_id", ev.Data.RoomID))
		response.Internal(c, "failed to resolve room")
		return
	}
	if m == nil {
		h.logger.Debug("webhook for untracked room", zap.String("room_id", ev.Data.RoomID), zap.String("type", ev.Type))
		response.OK(c, gin.H{"handled": false})
		return
	}

	switch ev.Type {
	case eventSessionClose:
		sess, err := h.sessionRepo.LatestFor(ctx, m.ID)
		if err != nil {
			h.logger.Error("webhook session lookup failed", zap.Error(err), zap.String("meetup_id", m.ID))
			response.Internal(c, "failed to resolve session")
			return
		}
		if sess == nil {
			response.OK(c, gin.H{"handled": false})
			return
		}
		if err := h.queue.EnqueueSessionStats(ctx, queue.SessionStatsPayload{SessionID: sess.ID, MeetupID: m.ID}); err != nil {
			h.logger.Error("enqueue stats job failed", zap.Error(err), zap.String("session_id", sess.ID.String()))
			response.Internal(c, "failed to enqueue job")
			return
		}

	case eventRecordingSuccess:
		if ev.Data.RecordingURL == "" {
			response.BadRequest(c, "missing recording url")
			return
		}
		if err := h.queue.EnqueueClipIngest(ctx, queue.ClipIngestPayload{
			MeetupID:        m.ID,
			FileURL:         ev.Data.RecordingURL,
			DurationSeconds: ev.Data.DurationSeconds,
		}); err != nil {
			h.logger.Error("enqueue clip job failed", zap.Error(err), zap.String("meetup_id", m.ID))
			response.Internal(c, "failed to enqueue job")
			return
		}

	default:
		h.logger.Debug("ignoring webhook event", zap.String("type", ev.Type))
		response.OK(c, gin.H{"handled": false})
		return
	}

	h.logger.Info("webhook handled", zap.String("type", ev.Type), zap.String("meetup_id", m.ID))
	response.OK(c, gin.H{"handled": true})
}
