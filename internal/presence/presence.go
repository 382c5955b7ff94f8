// Package presence tracks how many viewers are watching each stream.
package presence

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/realtime"
)

// Counter is the atomic viewer counter on the stream row. Implemented by streams.Repository.
type Counter interface {
	IncrementViewers(ctx context.Context, id uuid.UUID) (int, error)
	// DecrementViewers never goes below zero.
	DecrementViewers(ctx context.Context, id uuid.UUID) (int, error)
}

// JoinRecorder updates view rollups after a join. Implemented by analytics.Aggregator.
type JoinRecorder interface {
	RecordJoin(ctx context.Context, streamID uuid.UUID, viewerCount int, viewerID string)
}

// Service runs join/leave. The counter write is atomic; the rollup write after it is a separate,
// best-effort statement.
type Service struct {
	counter   Counter
	analytics JoinRecorder
	bus       realtime.Publisher
	logger    *zap.Logger
}

// NewService creates a presence service.
func NewService(counter Counter, analytics JoinRecorder, bus realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{counter: counter, analytics: analytics, bus: bus, logger: logger}
}

// Join adds a viewer. viewerID may be empty for anonymous viewers; they count toward views but not
// unique viewers. It returns the post-increment count.
func (s *Service) Join(ctx context.Context, streamID uuid.UUID, viewerID string) (int, error) {
	n, err := s.counter.IncrementViewers(ctx, streamID)
	if err != nil {
		return 0, err
	}
	s.analytics.RecordJoin(ctx, streamID, n, viewerID)
	s.publish(ctx, streamID, n)
	return n, nil
}

// Leave removes a viewer and returns the new count, clamped at zero.
func (s *Service) Leave(ctx context.Context, streamID uuid.UUID) (int, error) {
	n, err := s.counter.DecrementViewers(ctx, streamID)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, streamID, n)
	return n, nil
}

func (s *Service) publish(ctx context.Context, streamID uuid.UUID, n int) {
	err := s.bus.Publish(ctx, realtime.TopicViewerCountChanged, streamID, realtime.ViewerCountPayload{
		StreamID:    streamID,
		ViewerCount: n,
	})
	if err != nil {
		s.logger.Warn("publish viewer count failed", zap.String("stream_id", streamID.String()), zap.Error(err))
	}
}
