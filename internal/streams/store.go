package streams

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
)

// Store persists streams. Lookups of a missing stream return an apperr NotFound error.
type Store interface {
	// Create inserts s together with its zeroed analytics row.
	Create(ctx context.Context, s *models.Stream) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Stream, error)
	// GetByKey resolves a session key, preferring a LIVE stream, then SCHEDULED, then the newest.
	GetByKey(ctx context.Context, key string) (*models.Stream, error)
	List(ctx context.Context, f models.StreamFilter) ([]models.Stream, error)
	Update(ctx context.Context, id uuid.UUID, u models.StreamUpdate) (*models.Stream, error)
	// MarkLive moves a SCHEDULED stream to LIVE. When the stream is not SCHEDULED nothing is written and
	// the current record is returned with changed=false.
	MarkLive(ctx context.Context, id uuid.UUID, startedAt time.Time, playbackURL string) (s *models.Stream, changed bool, err error)
	// MarkEnded moves a LIVE stream to ENDED, same contract as MarkLive.
	MarkEnded(ctx context.Context, id uuid.UUID, endedAt time.Time) (s *models.Stream, changed bool, err error)
	SetScores(ctx context.Context, id uuid.UUID, home, away int) (*models.Stream, error)
	// SetKeyForOwner applies key to every non-ENDED stream of ownerID and returns how many were rewritten.
	SetKeyForOwner(ctx context.Context, ownerID uuid.UUID, key, ingestURL string) (int64, error)
	// Delete removes the stream with its analytics and messages.
	Delete(ctx context.Context, id uuid.UUID) error
}
