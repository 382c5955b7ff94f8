package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
	"github.com/sportcast/backend/pkg/response"
)

// StreamLookup resolves the stream an analytics request targets.
type StreamLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Stream, error)
}

// Handler serves stream analytics to owners and admins.
type Handler struct {
	aggregator *Aggregator
	streams    StreamLookup
}

// NewHandler creates an analytics handler.
func NewHandler(aggregator *Aggregator, streams StreamLookup) *Handler {
	return &Handler{aggregator: aggregator, streams: streams}
}

// GetByStream returns the rollups. Only the stream owner or an admin may read them.
func (h *Handler) GetByStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	ctx := c.Request.Context()
	ident := middleware.MustIdentity(c)

	s, err := h.streams.GetByID(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if s.OwnerID != ident.UserID && ident.Role != models.RoleAdmin {
		response.Error(c, apperr.Forbidden("only the owner can view analytics"))
		return
	}

	stats, err := h.aggregator.Get(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Reconcile handles POST /admin/streams/:id/reconcile, rebuilding the rollups synchronously.
func (h *Handler) Reconcile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	stats, err := h.aggregator.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
