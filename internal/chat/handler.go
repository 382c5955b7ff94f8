package chat

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/request"
	"github.com/sportcast/backend/pkg/response"
)

// SendRequest is the body for POST /streams/:id/messages.
type SendRequest struct {
	Content string             `json:"content" binding:"required"`
	Type    models.MessageType `json:"type"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /streams/:id/messages?limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	limit, offset := request.Pagination(c, DefaultLimit, MaxLimit)
	list, err := h.svc.List(c.Request.Context(), id, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Send handles POST /streams/:id/messages. The sender name is taken from the token.
func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ident := middleware.MustIdentity(c)
	m, err := h.svc.Send(c.Request.Context(), SendInput{
		StreamID:   id,
		SenderID:   ident.UserID,
		SenderName: ident.UserName,
		Content:    req.Content,
		Type:       req.Type,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}
