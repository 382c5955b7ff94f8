package streams

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/request"
	"github.com/sportcast/backend/pkg/response"
	"github.com/sportcast/backend/pkg/storage"
)

// Thumbnails stores stream thumbnail images. Implemented by storage.S3.
type Thumbnails interface {
	PresignThumbnail(ctx context.Context, streamID, contentType, filename string) (*storage.PresignedUpload, error)
	UploadThumbnail(ctx context.Context, streamID, contentType, filename string, body io.Reader, size int64) (*storage.UploadResult, error)
}

// CreateRequest is the body for POST /streams.
type CreateRequest struct {
	Title        string               `json:"title" binding:"required"`
	Description  string               `json:"description"`
	Category     models.SportCategory `json:"category"`
	HomeTeam     *string              `json:"home_team"`
	AwayTeam     *string              `json:"away_team"`
	ThumbnailURL string               `json:"thumbnail_url"`
	ScheduledAt  *time.Time           `json:"scheduled_at"`
}

// UpdateRequest is the body for PATCH /streams/:id. Omitted fields are left unchanged.
type UpdateRequest struct {
	Title        *string               `json:"title"`
	Description  *string               `json:"description"`
	Category     *models.SportCategory `json:"category"`
	HomeTeam     *string               `json:"home_team"`
	AwayTeam     *string               `json:"away_team"`
	ThumbnailURL *string               `json:"thumbnail_url"`
	ScheduledAt  *time.Time            `json:"scheduled_at"`
}

// ScoreRequest is the body for PUT /streams/:id/score.
type ScoreRequest struct {
	HomeScore *int `json:"home_score" binding:"required"`
	AwayScore *int `json:"away_score" binding:"required"`
}

// ThumbnailURLRequest is the body for POST /streams/:id/thumbnail/upload-url.
type ThumbnailURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	Filename    string `json:"filename"`
}

// Handler handles stream HTTP endpoints.
type Handler struct {
	registry   *Registry
	thumbnails Thumbnails
	logger     *zap.Logger
}

// NewHandler creates a streams handler. thumbnails may be nil when no bucket is configured.
func NewHandler(registry *Registry, thumbnails Thumbnails, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, thumbnails: thumbnails, logger: logger}
}

// view hides the session key and ingest URL from anyone but the owner.
func view(c *gin.Context, s models.Stream) models.Stream {
	if ident, ok := middleware.CurrentIdentity(c); ok && ident.UserID == s.OwnerID {
		return s
	}
	return s.Public()
}

func viewAll(c *gin.Context, list []models.Stream) []models.Stream {
	out := make([]models.Stream, len(list))
	for i, s := range list {
		out[i] = view(c, s)
	}
	return out
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /streams.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ident := middleware.MustIdentity(c)
	s, err := h.registry.Create(c.Request.Context(), ident.UserID, CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		HomeTeam:     req.HomeTeam,
		AwayTeam:     req.AwayTeam,
		ThumbnailURL: req.ThumbnailURL,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, s)
}

// Get handles GET /streams/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view(c, *s))
}

// List handles GET /streams?status=.
func (h *Handler) List(c *gin.Context) {
	var status *models.StreamStatus
	if v := c.Query("status"); v != "" {
		st := models.StreamStatus(v)
		status = &st
	}
	limit, offset := request.Pagination(c, 50, 100)
	list, err := h.registry.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, viewAll(c, list))
}

// Live handles GET /streams/live.
func (h *Handler) Live(c *gin.Context) {
	list, err := h.registry.Live(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, viewAll(c, list))
}

// Mine handles GET /streams/mine.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.registry.Mine(c.Request.Context(), middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /streams/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.registry.Update(c.Request.Context(), id, middleware.MustIdentity(c).UserID, models.StreamUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		HomeTeam:     req.HomeTeam,
		AwayTeam:     req.AwayTeam,
		ThumbnailURL: req.ThumbnailURL,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// Start handles POST /streams/:id/start.
func (h *Handler) Start(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.registry.Start(c.Request.Context(), id, middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// End handles POST /streams/:id/end.
func (h *Handler) End(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.registry.End(c.Request.Context(), id, middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// UpdateScore handles PUT /streams/:id/score.
func (h *Handler) UpdateScore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.registry.UpdateScore(c.Request.Context(), ScoreInput{
		StreamID:  id,
		HomeScore: *req.HomeScore,
		AwayScore: *req.AwayScore,
	}, middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /streams/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.registry.Delete(c.Request.Context(), id, middleware.MustIdentity(c).UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "deleted": true})
}

// RegenerateKey handles POST /streams/regenerate-key.
func (h *Handler) RegenerateKey(c *gin.Context) {
	key, n, err := h.registry.RegenerateKey(c.Request.Context(), middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"session_key":     key,
		"ingest_url":      h.registry.urls.IngestURL(key),
		"streams_updated": n,
	})
}

// ThumbnailUploadURL handles POST /streams/:id/thumbnail/upload-url. The client PUTs the image to
// upload_url and then PATCHes the stream with object.cdn_url.
func (h *Handler) ThumbnailUploadURL(c *gin.Context) {
	if h.thumbnails == nil {
		response.ServiceUnavailable(c, "thumbnail storage not configured")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ThumbnailURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, ok := storage.ThumbnailExtension(req.ContentType, req.Filename); !ok {
		response.BadRequest(c, "thumbnail must be a JPEG, PNG or WebP image")
		return
	}
	if _, err := h.registry.Owned(c.Request.Context(), id, middleware.MustIdentity(c).UserID); err != nil {
		response.Error(c, err)
		return
	}
	up, err := h.thumbnails.PresignThumbnail(c.Request.Context(), id.String(), req.ContentType, req.Filename)
	if err != nil {
		h.logger.Error("presign thumbnail failed", zap.String("stream_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, up)
}

// UploadThumbnail handles POST /streams/:id/thumbnail (multipart field "file") and sets the stream's
// thumbnail to the uploaded image.
func (h *Handler) UploadThumbnail(c *gin.Context) {
	if h.thumbnails == nil {
		response.ServiceUnavailable(c, "thumbnail storage not configured")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	callerID := middleware.MustIdentity(c).UserID
	if _, err := h.registry.Owned(ctx, id, callerID); err != nil {
		response.Error(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > storage.MaxThumbnailSize {
		response.BadRequest(c, "thumbnail exceeds 5MB")
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if _, ok := storage.ThumbnailExtension(contentType, fh.Filename); !ok {
		response.BadRequest(c, "thumbnail must be a JPEG, PNG or WebP image")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "could not read file")
		return
	}
	defer f.Close()

	res, err := h.thumbnails.UploadThumbnail(ctx, id.String(), contentType, fh.Filename, f, fh.Size)
	if err != nil {
		h.logger.Error("thumbnail upload failed", zap.String("stream_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to upload thumbnail")
		return
	}
	s, err := h.registry.Update(ctx, id, callerID, models.StreamUpdate{ThumbnailURL: &res.CDNURL})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"stream": s, "upload": res})
}
