package analytics

import (
	"context"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
)

// Store persists per-stream rollups. Every method targets the row created alongside the stream.
type Store interface {
	// RecordView adds one view, raises the peak to viewerCount if higher and adds viewerID to the
	// unique set when it is non-empty.
	RecordView(ctx context.Context, streamID uuid.UUID, viewerCount int, viewerID string) error
	IncrementMessages(ctx context.Context, streamID uuid.UUID) error
	// SetDuration writes duration_seconds only if it is still unset. It reports whether the write happened.
	SetDuration(ctx context.Context, streamID uuid.UUID, seconds int64) (bool, error)
	// Reconcile recomputes the message count from the ledger and raises the peak to the live counter.
	Reconcile(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error)
	GetByStream(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error)
}
