package ingest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sportcast/backend/pkg/apperr"
	"github.com/sportcast/backend/pkg/response"
)

// CallbackRequest is what the ingest server posts: nginx-rtmp sends a form body, other servers JSON.
// Only the stream name (the session key) is used.
type CallbackRequest struct {
	Name string `form:"name" json:"name"`
	App  string `form:"app" json:"app"`
	Addr string `form:"addr" json:"addr"`
}

// Handler exposes the bridge under /webhooks/ingest.
type Handler struct {
	bridge *Bridge
	logger *zap.Logger
}

// NewHandler creates an ingest webhook handler.
func NewHandler(bridge *Bridge, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{bridge: bridge, logger: logger}
}

// Register mounts the four callbacks on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/on-publish", h.OnPublish)
	g.POST("/on-publish-done", h.OnPublishDone)
	g.POST("/on-play", h.OnPlay)
	g.POST("/on-play-done", h.OnPlayDone)
}

func (h *Handler) key(c *gin.Context) string {
	var req CallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Debug("ingest callback bind failed", zap.Error(err))
		return ""
	}
	return req.Name
}

func (h *Handler) reject(c *gin.Context, err error) {
	if errors.Is(err, apperr.ErrUnauthorized) {
		response.Unauthorized(c, apperr.Message(err, "unauthorized"))
		return
	}
	response.Error(c, err)
}

// OnPublish handles POST /webhooks/ingest/on-publish. A non-2xx answer makes the ingest server drop the feed.
func (h *Handler) OnPublish(c *gin.Context) {
	key := h.key(c)
	if key == "" {
		response.Unauthorized(c, "invalid stream key")
		return
	}
	s, err := h.bridge.Publish(c.Request.Context(), key)
	if err != nil {
		h.reject(c, err)
		return
	}
	response.OK(c, gin.H{"stream_id": s.ID, "status": s.Status})
}

// OnPublishDone handles POST /webhooks/ingest/on-publish-done. It always answers 200.
func (h *Handler) OnPublishDone(c *gin.Context) {
	key := h.key(c)
	if key == "" {
		c.JSON(http.StatusOK, response.Body{Success: false, Error: "stream not found"})
		return
	}
	found, err := h.bridge.PublishDone(c.Request.Context(), key)
	switch {
	case err != nil:
		h.logger.Warn("ingest publish done: end failed", zap.Error(err))
		c.JSON(http.StatusOK, response.Body{Success: false, Error: apperr.Message(err, "failed to end stream")})
	case !found:
		c.JSON(http.StatusOK, response.Body{Success: false, Error: "stream not found"})
	default:
		response.OK(c, gin.H{"ended": true})
	}
}

// OnPlay handles POST /webhooks/ingest/on-play.
func (h *Handler) OnPlay(c *gin.Context) {
	key := h.key(c)
	if key == "" {
		response.Unauthorized(c, "invalid stream key")
		return
	}
	s, err := h.bridge.Play(c.Request.Context(), key)
	if err != nil {
		h.reject(c, err)
		return
	}
	response.OK(c, gin.H{"stream_id": s.ID})
}

// OnPlayDone handles POST /webhooks/ingest/on-play-done.
func (h *Handler) OnPlayDone(c *gin.Context) {
	response.OK(c, nil)
}
