package analytics

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/models"
)

// Aggregator updates rollups as a side effect of presence, chat and lifecycle operations.
// Record* methods never return errors: a failed rollup is logged and the triggering operation proceeds.
type Aggregator struct {
	store  Store
	logger *zap.Logger
}

// NewAggregator creates an aggregator over store.
func NewAggregator(store Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, logger: logger}
}

// RecordJoin counts a view at the post-increment viewer count.
func (a *Aggregator) RecordJoin(ctx context.Context, streamID uuid.UUID, viewerCount int, viewerID string) {
	if err := a.store.RecordView(ctx, streamID, viewerCount, viewerID); err != nil {
		a.logger.Warn("analytics record view failed", zap.String("stream_id", streamID.String()), zap.Error(err))
	}
}

// RecordMessage counts one chat message.
func (a *Aggregator) RecordMessage(ctx context.Context, streamID uuid.UUID) {
	if err := a.store.IncrementMessages(ctx, streamID); err != nil {
		a.logger.Warn("analytics increment messages failed", zap.String("stream_id", streamID.String()), zap.Error(err))
	}
}

// RecordDuration stores the broadcast duration if none is stored yet.
func (a *Aggregator) RecordDuration(ctx context.Context, streamID uuid.UUID, seconds int64) {
	written, err := a.store.SetDuration(ctx, streamID, seconds)
	if err != nil {
		a.logger.Warn("analytics set duration failed", zap.String("stream_id", streamID.String()), zap.Error(err))
		return
	}
	if !written {
		a.logger.Debug("duration already recorded", zap.String("stream_id", streamID.String()))
	}
}

// Get returns the rollups for a stream.
func (a *Aggregator) Get(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error) {
	return a.store.GetByStream(ctx, streamID)
}

// Reconcile repairs drifted rollups. Used by the analytics worker.
func (a *Aggregator) Reconcile(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error) {
	stats, err := a.store.Reconcile(ctx, streamID)
	if err != nil {
		return nil, err
	}
	a.logger.Info("analytics reconciled",
		zap.String("stream_id", streamID.String()),
		zap.Int("peak_viewers", stats.PeakViewers),
		zap.Int("total_messages", stats.TotalMessages),
	)
	return stats, nil
}
