package streams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

const streamColumns = `id, title, description, category, status, owner_id, session_key, ingest_url, playback_url,
	viewer_count, home_team, away_team, home_score, away_score, thumbnail_url,
	scheduled_at, started_at, ended_at, created_at, updated_at`

// Repository handles streams persistence. It also serves as the presence counter store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a streams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanStream(row pgx.Row) (*models.Stream, error) {
	var s models.Stream
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Category, &s.Status, &s.OwnerID, &s.SessionKey, &s.IngestURL, &s.PlaybackURL,
		&s.ViewerCount, &s.HomeTeam, &s.AwayTeam, &s.HomeScore, &s.AwayScore, &s.ThumbnailURL,
		&s.ScheduledAt, &s.StartedAt, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("stream not found")
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a stream and its zeroed analytics row in one transaction.
func (r *Repository) Create(ctx context.Context, s *models.Stream) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `INSERT INTO streams (id, title, description, category, status, owner_id, session_key, ingest_url,
		home_team, away_team, thumbnail_url, scheduled_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, viewer_count, created_at, updated_at`
	err = tx.QueryRow(ctx, q, s.Title, s.Description, s.Category, s.Status, s.OwnerID, s.SessionKey, s.IngestURL,
		s.HomeTeam, s.AwayTeam, s.ThumbnailURL, s.ScheduledAt).
		Scan(&s.ID, &s.ViewerCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stream: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO stream_analytics (stream_id) VALUES ($1)`, s.ID); err != nil {
		return fmt.Errorf("insert analytics: %w", err)
	}
	return tx.Commit(ctx)
}

// GetByID returns a stream by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	return scanStream(r.pool.QueryRow(ctx, `SELECT `+streamColumns+` FROM streams WHERE id = $1`, id))
}

// GetByKey returns the stream a session key maps to.
func (r *Repository) GetByKey(ctx context.Context, key string) (*models.Stream, error) {
	const q = `SELECT ` + streamColumns + ` FROM streams WHERE session_key = $1
		ORDER BY (status = 'LIVE') DESC, (status = 'SCHEDULED') DESC, created_at DESC LIMIT 1`
	return scanStream(r.pool.QueryRow(ctx, q, key))
}

// List returns streams, optionally filtered by status and owner.
func (r *Repository) List(ctx context.Context, f models.StreamFilter) ([]models.Stream, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	q := `SELECT ` + streamColumns + ` FROM streams`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY COALESCE(started_at, scheduled_at, created_at) DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Stream, 0)
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Update applies the non-nil fields of u.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u models.StreamUpdate) (*models.Stream, error) {
	const q = `UPDATE streams SET
		title = COALESCE($2, title),
		description = COALESCE($3, description),
		category = COALESCE($4, category),
		home_team = COALESCE($5, home_team),
		away_team = COALESCE($6, away_team),
		thumbnail_url = COALESCE($7, thumbnail_url),
		scheduled_at = COALESCE($8, scheduled_at),
		updated_at = NOW()
		WHERE id = $1 RETURNING ` + streamColumns
	return scanStream(r.pool.QueryRow(ctx, q, id, u.Title, u.Description, u.Category, u.HomeTeam, u.AwayTeam, u.ThumbnailURL, u.ScheduledAt))
}

// MarkLive sets status LIVE, started_at and playback_url if the stream is still SCHEDULED.
func (r *Repository) MarkLive(ctx context.Context, id uuid.UUID, startedAt time.Time, playbackURL string) (*models.Stream, bool, error) {
	const q = `UPDATE streams SET status = 'LIVE', started_at = $2, playback_url = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'SCHEDULED' RETURNING ` + streamColumns
	return r.transition(ctx, id, q, startedAt, playbackURL)
}

// MarkEnded sets status ENDED and ended_at if the stream is LIVE.
func (r *Repository) MarkEnded(ctx context.Context, id uuid.UUID, endedAt time.Time) (*models.Stream, bool, error) {
	const q = `UPDATE streams SET status = 'ENDED', ended_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'LIVE' RETURNING ` + streamColumns
	return r.transition(ctx, id, q, endedAt)
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, q string, args ...interface{}) (*models.Stream, bool, error) {
	s, err := scanStream(r.pool.QueryRow(ctx, q, append([]interface{}{id}, args...)...))
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}
	// Guard did not match: either the stream is gone or it is in another state.
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

// SetScores overwrites both scores in one statement.
func (r *Repository) SetScores(ctx context.Context, id uuid.UUID, home, away int) (*models.Stream, error) {
	const q = `UPDATE streams SET home_score = $2, away_score = $3, updated_at = NOW() WHERE id = $1 RETURNING ` + streamColumns
	return scanStream(r.pool.QueryRow(ctx, q, id, home, away))
}

// SetKeyForOwner rewrites session_key and ingest_url on all of the owner's non-ENDED streams.
func (r *Repository) SetKeyForOwner(ctx context.Context, ownerID uuid.UUID, key, ingestURL string) (int64, error) {
	const q = `UPDATE streams SET session_key = $2, ingest_url = $3, updated_at = NOW()
		WHERE owner_id = $1 AND status <> 'ENDED'`
	tag, err := r.pool.Exec(ctx, q, ownerID, key, ingestURL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a stream; analytics and messages go with it through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM streams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("stream not found")
	}
	return nil
}

// IncrementViewers atomically adds one viewer and returns the new count.
func (r *Repository) IncrementViewers(ctx context.Context, id uuid.UUID) (int, error) {
	const q = `UPDATE streams SET viewer_count = viewer_count + 1, updated_at = NOW() WHERE id = $1 RETURNING viewer_count`
	return r.counter(ctx, q, id)
}

// DecrementViewers atomically removes one viewer, clamping at zero in the same statement.
func (r *Repository) DecrementViewers(ctx context.Context, id uuid.UUID) (int, error) {
	const q = `UPDATE streams SET viewer_count = GREATEST(viewer_count - 1, 0), updated_at = NOW() WHERE id = $1 RETURNING viewer_count`
	return r.counter(ctx, q, id)
}

func (r *Repository) counter(ctx context.Context, q string, id uuid.UUID) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound("stream not found")
		}
		return 0, err
	}
	return n, nil
}
