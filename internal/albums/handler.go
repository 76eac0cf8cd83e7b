package albums

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/pkg/response"
	"github.com/frameline/meetups-backend/pkg/storage"
)

// Handler handles album HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates an albums handler. s3 may be nil; photos then keep the
// direct URLs stored in the catalog.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// Photos handles GET /albums/:id/photos. S3-backed photos get pre-signed
// download URLs; a presign failure falls back to the stored URL rather than
// failing the whole album.
func (h *Handler) Photos(c *gin.Context) {
	albumID := c.Param("id")
	ctx := c.Request.Context()

	exists, err := h.repo.AlbumExists(ctx, albumID)
	if err != nil {
		h.logger.Error("album lookup failed", zap.Error(err), zap.String("album_id", albumID))
		response.Internal(c, "failed to load album")
		return
	}
	if !exists {
		response.NotFound(c, "album not found")
		return
	}

	photos, err := h.repo.PhotosForAlbum(ctx, albumID)
	if err != nil {
		h.logger.Error("list photos failed", zap.Error(err), zap.String("album_id", albumID))
		response.Internal(c, "failed to load photos")
		return
	}

	if h.s3 != nil {
		for i := range photos {
			h.presign(c, &photos[i])
		}
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	response.OK(c, gin.H{"album_id": albumID, "photos": photos})
}

func (h *Handler) presign(c *gin.Context, p *models.Photo) {
	ctx := c.Request.Context()
	expire := h.s3.PresignExpire()
	if p.ObjectKey != nil {
		url, err := h.s3.GeneratePresignedDownloadURL(ctx, h.s3.PhotosBucket(), *p.ObjectKey, expire)
		if err != nil {
			h.logger.Warn("presign photo failed", zap.Error(err), zap.String("photo_id", p.ID))
		} else {
			p.URL = url
		}
	}
	if p.ThumbKey != nil {
		url, err := h.s3.GeneratePresignedDownloadURL(ctx, h.s3.PhotosBucket(), *p.ThumbKey, expire)
		if err != nil {
			h.logger.Warn("presign thumbnail failed", zap.Error(err), zap.String("photo_id", p.ID))
		} else {
			p.ThumbnailURL = url
		}
	}
}
