package clips

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/pkg/response"
	"github.com/frameline/meetups-backend/pkg/storage"
)

// Handler handles clip HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a clips handler. s3 may be nil; clips then keep stored
// URLs.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// ListByPhoto handles GET /photos/:id/meetup-clips. An unknown photo id
// yields an empty list, not a 404: the catalog and the clip archive evolve
// independently.
func (h *Handler) ListByPhoto(c *gin.Context) {
	photoID := c.Param("id")
	ctx := c.Request.Context()

	list, err := h.repo.ListByPhoto(ctx, photoID)
	if err != nil {
		h.logger.Error("list clips failed", zap.Error(err), zap.String("photo_id", photoID))
		response.Internal(c, "failed to load clips")
		return
	}

	if h.s3 != nil {
		expire := h.s3.PresignExpire()
		for i := range list {
			cl := &list[i]
			if cl.ObjectKey != "" {
				url, err := h.s3.GeneratePresignedDownloadURL(ctx, h.s3.ClipsBucket(), cl.ObjectKey, expire)
				if err != nil {
					h.logger.Warn("presign clip failed", zap.Error(err), zap.String("clip_id", cl.ID.String()))
				} else {
					cl.ClipURL = url
				}
			}
			if cl.ThumbnailKey != "" {
				url, err := h.s3.GeneratePresignedDownloadURL(ctx, h.s3.ClipsBucket(), cl.ThumbnailKey, expire)
				if err != nil {
					h.logger.Warn("presign clip thumbnail failed", zap.Error(err), zap.String("clip_id", cl.ID.String()))
				} else {
					cl.ThumbnailURL = url
				}
			}
		}
	}
	if list == nil {
		list = []models.Clip{}
	}
	response.OK(c, gin.H{"photo_id": photoID, "clips": list})
}
