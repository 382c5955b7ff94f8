package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
	"github.com/sportcast/backend/pkg/queue"
)

// Reconciler repairs a stream's analytics rollups from the primary tables.
type Reconciler interface {
	Reconcile(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error)
}

// JobSource is the slice of the job queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
}

// AnalyticsProcessor processes analytics reconcile jobs enqueued when a stream ends.
type AnalyticsProcessor struct {
	analytics Reconciler
	queue     JobSource
	backoff   time.Duration
	logger    *zap.Logger
}

// NewAnalyticsProcessor creates a reconcile job processor.
func NewAnalyticsProcessor(analytics Reconciler, q JobSource, logger *zap.Logger) *AnalyticsProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsProcessor{analytics: analytics, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one reconcile job. Jobs for streams that no longer exist are dropped.
func (p *AnalyticsProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReconcile {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ReconcilePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	_, err := p.analytics.Reconcile(ctx, payload.StreamID)
	if errors.Is(err, apperr.ErrNotFound) {
		p.logger.Info("stream gone, dropping reconcile job", zap.String("stream_id", payload.StreamID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", payload.StreamID, err)
	}

	p.logger.Debug("reconcile job done", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AnalyticsProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("analytics worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, queue.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, err); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *AnalyticsProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
