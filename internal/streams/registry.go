package streams

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/internal/realtime"
	"github.com/sportcast/backend/pkg/apperr"
)

// MaxTitleLength is the maximum stream title length in characters.
const MaxTitleLength = 200

// DurationRecorder stores the broadcast duration once a stream ends. Implemented by analytics.Aggregator.
type DurationRecorder interface {
	RecordDuration(ctx context.Context, streamID uuid.UUID, seconds int64)
}

// ReconcileEnqueuer schedules an analytics repair for an ended stream. Implemented by queue.Queue.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, streamID uuid.UUID) error
}

// CreateInput is what an owner supplies for a new stream.
type CreateInput struct {
	Title        string
	Description  string
	Category     models.SportCategory
	HomeTeam     *string
	AwayTeam     *string
	ThumbnailURL string
	ScheduledAt  *time.Time
}

// ScoreInput overwrites both scores of a stream.
type ScoreInput struct {
	StreamID  uuid.UUID
	HomeScore int
	AwayScore int
}

// Registry runs the stream lifecycle: SCHEDULED -> LIVE -> ENDED, owner checks and the events
// each change publishes.
type Registry struct {
	store     Store
	durations DurationRecorder
	bus       realtime.Publisher
	urls      URLBuilder
	reconcile ReconcileEnqueuer
	logger    *zap.Logger

	now    func() time.Time
	newKey func() string
}

// NewRegistry creates a registry.
func NewRegistry(store Store, durations DurationRecorder, bus realtime.Publisher, urls URLBuilder, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:     store,
		durations: durations,
		bus:       bus,
		urls:      urls,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newKey:    NewSessionKey,
	}
}

// SetReconcileQueue enables reconcile jobs on stream end. Without one, rollups are left as recorded.
func (r *Registry) SetReconcileQueue(q ReconcileEnqueuer) {
	r.reconcile = q
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperr.Validation("title must be at most %d characters", MaxTitleLength)
	}
	return nil
}

// Create registers a SCHEDULED stream for ownerID with a fresh session key.
func (r *Registry) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Stream, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = models.SportOther
	}
	if !in.Category.Valid() {
		return nil, apperr.Validation("unknown category %q", in.Category)
	}

	key := r.newKey()
	s := &models.Stream{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		Status:       models.StreamStatusScheduled,
		OwnerID:      ownerID,
		SessionKey:   key,
		IngestURL:    r.urls.IngestURL(key),
		HomeTeam:     in.HomeTeam,
		AwayTeam:     in.AwayTeam,
		ThumbnailURL: in.ThumbnailURL,
		ScheduledAt:  in.ScheduledAt,
	}
	if err := r.store.Create(ctx, s); err != nil {
		return nil, err
	}
	r.logger.Info("stream created", zap.String("stream_id", s.ID.String()), zap.String("owner_id", ownerID.String()))
	return s, nil
}

// Owned loads a stream and checks callerID owns it.
func (r *Registry) Owned(ctx context.Context, id, callerID uuid.UUID) (*models.Stream, error) {
	s, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != callerID {
		return nil, apperr.Forbidden("only the stream owner can do this")
	}
	return s, nil
}

// Start takes an owned stream live. Starting a LIVE stream returns it unchanged.
func (r *Registry) Start(ctx context.Context, id, callerID uuid.UUID) (*models.Stream, error) {
	s, err := r.Owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	updated, _, err := r.start(ctx, s)
	return updated, err
}

// StartByKey is the ingest path: the session key stands in for the owner check. started is true only
// for the call whose update moved the stream to LIVE.
func (r *Registry) StartByKey(ctx context.Context, key string) (s *models.Stream, started bool, err error) {
	s, err = r.store.GetByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return r.start(ctx, s)
}

func (r *Registry) start(ctx context.Context, s *models.Stream) (*models.Stream, bool, error) {
	switch s.Status {
	case models.StreamStatusLive:
		return s, false, nil
	case models.StreamStatusEnded:
		return nil, false, apperr.InvalidTransition("stream has already ended")
	}

	updated, changed, err := r.store.MarkLive(ctx, s.ID, r.now(), r.urls.PlaybackURL(s.SessionKey))
	if err != nil {
		return nil, false, err
	}
	if !changed {
		// Lost a race with another start or an end.
		if updated.Status == models.StreamStatusLive {
			return updated, false, nil
		}
		return nil, false, apperr.InvalidTransition("stream has already ended")
	}

	r.logger.Info("stream live", zap.String("stream_id", updated.ID.String()))
	r.publish(ctx, realtime.TopicStatusChanged, updated.ID, realtime.StatusPayload{
		StreamID:  updated.ID,
		Status:    updated.Status,
		StartedAt: updated.StartedAt,
	})
	return updated, true, nil
}

// End finishes an owned LIVE stream. Ending an ENDED stream returns it unchanged.
func (r *Registry) End(ctx context.Context, id, callerID uuid.UUID) (*models.Stream, error) {
	s, err := r.Owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	updated, _, err := r.end(ctx, s)
	return updated, err
}

// EndByKey is the ingest path for End. ended is true only for the call whose update ended the stream.
func (r *Registry) EndByKey(ctx context.Context, key string) (s *models.Stream, ended bool, err error) {
	s, err = r.store.GetByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return r.end(ctx, s)
}

func (r *Registry) end(ctx context.Context, s *models.Stream) (*models.Stream, bool, error) {
	switch s.Status {
	case models.StreamStatusEnded:
		return s, false, nil
	case models.StreamStatusScheduled:
		return nil, false, apperr.InvalidTransition("stream has not started")
	}

	updated, changed, err := r.store.MarkEnded(ctx, s.ID, r.now())
	if err != nil {
		return nil, false, err
	}
	if !changed {
		if updated.Status == models.StreamStatusEnded {
			return updated, false, nil
		}
		return nil, false, apperr.InvalidTransition("stream has not started")
	}

	if updated.StartedAt != nil && updated.EndedAt != nil {
		seconds := int64(updated.EndedAt.Sub(*updated.StartedAt) / time.Second)
		r.durations.RecordDuration(ctx, updated.ID, seconds)
	}
	r.logger.Info("stream ended", zap.String("stream_id", updated.ID.String()))
	r.publish(ctx, realtime.TopicStatusChanged, updated.ID, realtime.StatusPayload{
		StreamID:  updated.ID,
		Status:    updated.Status,
		StartedAt: updated.StartedAt,
		EndedAt:   updated.EndedAt,
	})
	if r.reconcile != nil {
		if err := r.reconcile.EnqueueReconcile(ctx, updated.ID); err != nil {
			r.logger.Warn("enqueue reconcile failed", zap.String("stream_id", updated.ID.String()), zap.Error(err))
		}
	}
	return updated, true, nil
}

// Update applies an owner's partial edit.
func (r *Registry) Update(ctx context.Context, id, callerID uuid.UUID, u models.StreamUpdate) (*models.Stream, error) {
	if u.Title != nil {
		if err := validateTitle(*u.Title); err != nil {
			return nil, err
		}
		t := strings.TrimSpace(*u.Title)
		u.Title = &t
	}
	if u.Category != nil && !u.Category.Valid() {
		return nil, apperr.Validation("unknown category %q", *u.Category)
	}
	if _, err := r.Owned(ctx, id, callerID); err != nil {
		return nil, err
	}
	return r.store.Update(ctx, id, u)
}

// UpdateScore overwrites both scores and publishes the new score line.
func (r *Registry) UpdateScore(ctx context.Context, in ScoreInput, callerID uuid.UUID) (*models.Stream, error) {
	if in.HomeScore < 0 || in.AwayScore < 0 {
		return nil, apperr.Validation("scores must not be negative")
	}
	if _, err := r.Owned(ctx, in.StreamID, callerID); err != nil {
		return nil, err
	}
	s, err := r.store.SetScores(ctx, in.StreamID, in.HomeScore, in.AwayScore)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, realtime.TopicScoreChanged, s.ID, realtime.ScorePayload{
		StreamID:  s.ID,
		HomeScore: in.HomeScore,
		AwayScore: in.AwayScore,
	})
	return s, nil
}

// RegenerateKey issues a new key and applies it to every non-ENDED stream of ownerID.
// It returns the key and how many streams now carry it.
func (r *Registry) RegenerateKey(ctx context.Context, ownerID uuid.UUID) (string, int64, error) {
	key := r.newKey()
	n, err := r.store.SetKeyForOwner(ctx, ownerID, key, r.urls.IngestURL(key))
	if err != nil {
		return "", 0, err
	}
	if n > 1 {
		r.logger.Warn("session key shared by several streams", zap.String("owner_id", ownerID.String()), zap.Int64("streams", n))
	}
	return key, n, nil
}

// Delete removes an owned stream with its analytics and chat.
func (r *Registry) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if _, err := r.Owned(ctx, id, callerID); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info("stream deleted", zap.String("stream_id", id.String()))
	return nil
}

// Get returns one stream.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	return r.store.GetByID(ctx, id)
}

// ByKey resolves a session key.
func (r *Registry) ByKey(ctx context.Context, key string) (*models.Stream, error) {
	return r.store.GetByKey(ctx, key)
}

// List returns streams, optionally only those in status.
func (r *Registry) List(ctx context.Context, status *models.StreamStatus, limit, offset int) ([]models.Stream, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Validation("unknown status %q", *status)
	}
	return r.store.List(ctx, models.StreamFilter{Status: status, Limit: limit, Offset: offset})
}

// Live returns LIVE streams.
func (r *Registry) Live(ctx context.Context) ([]models.Stream, error) {
	live := models.StreamStatusLive
	return r.store.List(ctx, models.StreamFilter{Status: &live})
}

// Mine returns every stream of ownerID.
func (r *Registry) Mine(ctx context.Context, ownerID uuid.UUID) ([]models.Stream, error) {
	return r.store.List(ctx, models.StreamFilter{OwnerID: &ownerID})
}

func (r *Registry) publish(ctx context.Context, topic realtime.Topic, streamID uuid.UUID, payload interface{}) {
	if err := r.bus.Publish(ctx, topic, streamID, payload); err != nil {
		r.logger.Warn("publish failed", zap.String("topic", string(topic)), zap.String("stream_id", streamID.String()), zap.Error(err))
	}
}
