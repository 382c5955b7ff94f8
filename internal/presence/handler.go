package presence

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/pkg/response"
)

// Handler handles POST /streams/:id/join and /leave.
type Handler struct {
	svc *Service
}

// NewHandler creates a presence handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Join handles POST /streams/:id/join. A signed-in caller is tracked as a unique viewer.
func (h *Handler) Join(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	var viewerID string
	if ident, ok := middleware.CurrentIdentity(c); ok {
		viewerID = ident.UserID.String()
	}
	n, err := h.svc.Join(c.Request.Context(), id, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"stream_id": id, "viewer_count": n})
}

// Leave handles POST /streams/:id/leave.
func (h *Handler) Leave(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	n, err := h.svc.Leave(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"stream_id": id, "viewer_count": n})
}
