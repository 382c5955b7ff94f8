package worker

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sportcast/backend/pkg/queue"
	"github.com/sportcast/backend/pkg/request"
	"github.com/sportcast/backend/pkg/response"
)

// DeadLetters inspects and drains the dead-letter list. Implemented by queue.Queue.
type DeadLetters interface {
	Pending(ctx context.Context) (int64, error)
	DeadLetters(ctx context.Context, limit int64) ([]queue.Job, error)
	RequeueDeadLetters(ctx context.Context) (int, error)
}

// Handler exposes queue administration under /admin/jobs. A nil queue answers 503.
type Handler struct {
	jobs   DeadLetters
	logger *zap.Logger
}

// NewHandler creates a queue admin handler.
func NewHandler(jobs DeadLetters, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jobs: jobs, logger: logger}
}

// List handles GET /admin/jobs: the pending count and the oldest dead letters.
func (h *Handler) List(c *gin.Context) {
	if h.jobs == nil {
		response.ServiceUnavailable(c, "job queue not configured")
		return
	}
	limit, _ := request.Pagination(c, 50, 500)
	ctx := c.Request.Context()
	pending, err := h.jobs.Pending(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	dead, err := h.jobs.DeadLetters(ctx, int64(limit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"pending": pending, "dead_letters": dead})
}

// Requeue handles POST /admin/jobs/requeue.
func (h *Handler) Requeue(c *gin.Context) {
	if h.jobs == nil {
		response.ServiceUnavailable(c, "job queue not configured")
		return
	}
	moved, err := h.jobs.RequeueDeadLetters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("dead letters requeued", zap.Int("count", moved))
	response.OK(c, gin.H{"requeued": moved})
}
