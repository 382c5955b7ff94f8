package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

// Analytics is the in-memory stream_analytics table.
type Analytics struct {
	db *DB
}

func (a *Analytics) get(id uuid.UUID) (*models.StreamAnalytics, error) {
	row, ok := a.db.analytics[id]
	if !ok {
		return nil, apperr.NotFound("analytics not found")
	}
	return row, nil
}

func cloneAnalytics(row *models.StreamAnalytics) *models.StreamAnalytics {
	c := *row
	c.UniqueViewerIDs = append([]string(nil), row.UniqueViewerIDs...)
	if row.DurationSeconds != nil {
		d := *row.DurationSeconds
		c.DurationSeconds = &d
	}
	return &c
}

// RecordView counts a view, raises the peak and tracks the viewer id.
func (a *Analytics) RecordView(_ context.Context, streamID uuid.UUID, viewerCount int, viewerID string) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	row, err := a.get(streamID)
	if err != nil {
		return err
	}
	row.TotalViews++
	if viewerCount > row.PeakViewers {
		row.PeakViewers = viewerCount
	}
	if viewerID != "" && !containsString(row.UniqueViewerIDs, viewerID) {
		row.UniqueViewerIDs = append(row.UniqueViewerIDs, viewerID)
	}
	row.UniqueViewers = len(row.UniqueViewerIDs)
	row.UpdatedAt = now()
	return nil
}

// IncrementMessages adds one to the message count.
func (a *Analytics) IncrementMessages(_ context.Context, streamID uuid.UUID) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	row, err := a.get(streamID)
	if err != nil {
		return err
	}
	row.TotalMessages++
	row.UpdatedAt = now()
	return nil
}

// SetDuration writes the duration if it is unset.
func (a *Analytics) SetDuration(_ context.Context, streamID uuid.UUID, seconds int64) (bool, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	row, err := a.get(streamID)
	if err != nil {
		return false, err
	}
	if row.DurationSeconds != nil {
		return false, nil
	}
	row.DurationSeconds = &seconds
	row.UpdatedAt = now()
	return true, nil
}

// Reconcile recounts messages and raises the peak to the live counter.
func (a *Analytics) Reconcile(_ context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	row, err := a.get(streamID)
	if err != nil {
		return nil, err
	}
	st, ok := a.db.streams[streamID]
	if !ok {
		return nil, apperr.NotFound("stream not found")
	}
	count := 0
	for _, m := range a.db.messages {
		if m.StreamID == streamID {
			count++
		}
	}
	row.TotalMessages = count
	if st.ViewerCount > row.PeakViewers {
		row.PeakViewers = st.ViewerCount
	}
	row.UpdatedAt = now()
	return cloneAnalytics(row), nil
}

// GetByStream returns a copy of the rollups.
func (a *Analytics) GetByStream(_ context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	row, err := a.get(streamID)
	if err != nil {
		return nil, err
	}
	return cloneAnalytics(row), nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
