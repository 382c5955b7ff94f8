package models

import (
	"time"

	"github.com/google/uuid"
)

// StreamAnalytics holds the derived rollups for one stream (one-to-one by stream id).
type StreamAnalytics struct {
	StreamID        uuid.UUID `json:"stream_id"`
	PeakViewers     int       `json:"peak_viewers"`
	TotalViews      int       `json:"total_views"`
	UniqueViewers   int       `json:"unique_viewers"`
	TotalMessages   int       `json:"total_messages"`
	DurationSeconds *int64    `json:"duration_seconds,omitempty"` // set once, when the stream ends
	UniqueViewerIDs []string  `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
