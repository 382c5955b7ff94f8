package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

const analyticsColumns = `stream_id, peak_viewers, total_views, unique_viewers, total_messages, duration_seconds,
	unique_viewer_ids, created_at, updated_at`

// Repository handles stream_analytics persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAnalytics(row pgx.Row) (*models.StreamAnalytics, error) {
	var a models.StreamAnalytics
	err := row.Scan(&a.StreamID, &a.PeakViewers, &a.TotalViews, &a.UniqueViewers, &a.TotalMessages, &a.DurationSeconds,
		&a.UniqueViewerIDs, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("analytics not found")
		}
		return nil, err
	}
	return &a, nil
}

// RecordView updates views, peak and the unique viewer set in one statement.
// unique_viewers is a generated column over the id array.
func (r *Repository) RecordView(ctx context.Context, streamID uuid.UUID, viewerCount int, viewerID string) error {
	const q = `UPDATE stream_analytics SET
		total_views = total_views + 1,
		peak_viewers = GREATEST(peak_viewers, $2),
		unique_viewer_ids = CASE
			WHEN $3::text = '' OR $3::text = ANY(unique_viewer_ids) THEN unique_viewer_ids
			ELSE array_append(unique_viewer_ids, $3::text)
		END,
		updated_at = NOW()
		WHERE stream_id = $1`
	return r.exec(ctx, q, streamID, viewerCount, viewerID)
}

// IncrementMessages adds one to total_messages.
func (r *Repository) IncrementMessages(ctx context.Context, streamID uuid.UUID) error {
	const q = `UPDATE stream_analytics SET total_messages = total_messages + 1, updated_at = NOW() WHERE stream_id = $1`
	return r.exec(ctx, q, streamID)
}

// SetDuration sets duration_seconds once.
func (r *Repository) SetDuration(ctx context.Context, streamID uuid.UUID, seconds int64) (bool, error) {
	const q = `UPDATE stream_analytics SET duration_seconds = $2, updated_at = NOW()
		WHERE stream_id = $1 AND duration_seconds IS NULL`
	tag, err := r.pool.Exec(ctx, q, streamID, seconds)
	if err != nil {
		return false, fmt.Errorf("set duration: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reconcile repairs rollups that drifted from the primary records.
func (r *Repository) Reconcile(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error) {
	const q = `UPDATE stream_analytics a SET
		total_messages = (SELECT COUNT(*) FROM messages m WHERE m.stream_id = a.stream_id),
		peak_viewers = GREATEST(a.peak_viewers, s.viewer_count),
		updated_at = NOW()
		FROM streams s
		WHERE a.stream_id = $1 AND s.id = a.stream_id
		RETURNING a.stream_id, a.peak_viewers, a.total_views, a.unique_viewers, a.total_messages, a.duration_seconds,
		a.unique_viewer_ids, a.created_at, a.updated_at`
	return scanAnalytics(r.pool.QueryRow(ctx, q, streamID))
}

// GetByStream returns the rollups for one stream.
func (r *Repository) GetByStream(ctx context.Context, streamID uuid.UUID) (*models.StreamAnalytics, error) {
	return scanAnalytics(r.pool.QueryRow(ctx, `SELECT `+analyticsColumns+` FROM stream_analytics WHERE stream_id = $1`, streamID))
}

func (r *Repository) exec(ctx context.Context, q string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("analytics not found")
	}
	return nil
}
