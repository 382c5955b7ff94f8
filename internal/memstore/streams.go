package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

// Streams is the in-memory streams table.
type Streams struct {
	db *DB
}

func (s *Streams) get(id uuid.UUID) (*models.Stream, error) {
	st, ok := s.db.streams[id]
	if !ok {
		return nil, apperr.NotFound("stream not found")
	}
	return st, nil
}

func clone(st *models.Stream) *models.Stream {
	c := *st
	return &c
}

// Create inserts st and its zeroed analytics row.
func (s *Streams) Create(_ context.Context, st *models.Stream) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := now()
	st.ID = uuid.New()
	st.ViewerCount = 0
	st.CreatedAt, st.UpdatedAt = t, t
	s.db.streams[st.ID] = clone(st)
	s.db.analytics[st.ID] = &models.StreamAnalytics{StreamID: st.ID, CreatedAt: t, UpdatedAt: t}
	return nil
}

// GetByID returns a copy of the stream.
func (s *Streams) GetByID(_ context.Context, id uuid.UUID) (*models.Stream, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return clone(st), nil
}

// GetByKey prefers a LIVE stream, then SCHEDULED, then the newest.
func (s *Streams) GetByKey(_ context.Context, key string) (*models.Stream, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rank := func(st models.StreamStatus) int {
		switch st {
		case models.StreamStatusLive:
			return 2
		case models.StreamStatusScheduled:
			return 1
		}
		return 0
	}
	var best *models.Stream
	for _, st := range s.db.streams {
		if st.SessionKey != key {
			continue
		}
		if best == nil || rank(st.Status) > rank(best.Status) ||
			(rank(st.Status) == rank(best.Status) && st.CreatedAt.After(best.CreatedAt)) {
			best = st
		}
	}
	if best == nil {
		return nil, apperr.NotFound("stream not found")
	}
	return clone(best), nil
}

func sortTime(st *models.Stream) time.Time {
	switch {
	case st.StartedAt != nil:
		return *st.StartedAt
	case st.ScheduledAt != nil:
		return *st.ScheduledAt
	}
	return st.CreatedAt
}

// List filters and orders like the SQL query.
func (s *Streams) List(_ context.Context, f models.StreamFilter) ([]models.Stream, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	list := make([]models.Stream, 0)
	for _, st := range s.db.streams {
		if f.Status != nil && st.Status != *f.Status {
			continue
		}
		if f.OwnerID != nil && st.OwnerID != *f.OwnerID {
			continue
		}
		list = append(list, *st)
	}
	sort.Slice(list, func(i, j int) bool { return sortTime(&list[i]).After(sortTime(&list[j])) })

	if f.Limit > 0 {
		if f.Offset >= len(list) {
			return []models.Stream{}, nil
		}
		end := f.Offset + f.Limit
		if end > len(list) {
			end = len(list)
		}
		list = list[f.Offset:end]
	}
	return list, nil
}

// Update applies the non-nil fields of u.
func (s *Streams) Update(_ context.Context, id uuid.UUID, u models.StreamUpdate) (*models.Stream, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if u.Title != nil {
		st.Title = *u.Title
	}
	if u.Description != nil {
		st.Description = *u.Description
	}
	if u.Category != nil {
		st.Category = *u.Category
	}
	if u.HomeTeam != nil {
		st.HomeTeam = u.HomeTeam
	}
	if u.AwayTeam != nil {
		st.AwayTeam = u.AwayTeam
	}
	if u.ThumbnailURL != nil {
		st.ThumbnailURL = *u.ThumbnailURL
	}
	if u.ScheduledAt != nil {
		st.ScheduledAt = u.ScheduledAt
	}
	st.UpdatedAt = now()
	return clone(st), nil
}

// MarkLive moves a SCHEDULED stream to LIVE.
func (s *Streams) MarkLive(_ context.Context, id uuid.UUID, startedAt time.Time, playbackURL string) (*models.Stream, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, err := s.get(id)
	if err != nil {
		return nil, false, err
	}
	if st.Status != models.StreamStatusScheduled {
		return clone(st), false, nil
	}
	st.Status = models.StreamStatusLive
	st.StartedAt = &startedAt
	st.PlaybackURL = playbackURL
	st.UpdatedAt = now()
	return clone(st), true, nil
}

// MarkEnded moves a LIVE stream to ENDED.
func (s *Streams) MarkEnded(_ context.Context, id uuid.UUID, endedAt time.Time) (*models.Stream, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, err := s.get(id)
	if err != nil {
		return nil, false, err
	}
	if st.Status != models.StreamStatusLive {
		return clone(st), false, nil
	}
	st.Status = models.StreamStatusEnded
	st.EndedAt = &endedAt
	st.UpdatedAt = now()
	return clone(st), true, nil
}

// SetScores overwrites both scores.
func (s *Streams) SetScores(_ context.Context, id uuid.UUID, home, away int) (*models.Stream, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, err := s.get(id)
	if err != nil {
		return nil, err
	}
	st.HomeScore, st.AwayScore = &home, &away
	st.UpdatedAt = now()
	return clone(st), nil
}

// SetKeyForOwner rewrites the key on every non-ENDED stream of ownerID.
func (s *Streams) SetKeyForOwner(_ context.Context, ownerID uuid.UUID, key, ingestURL string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	t := now()
	for _, st := range s.db.streams {
		if st.OwnerID != ownerID || st.Status == models.StreamStatusEnded {
			continue
		}
		st.SessionKey = key
		st.IngestURL = ingestURL
		st.UpdatedAt = t
		n++
	}
	return n, nil
}

// Delete removes the stream with its analytics and messages.
func (s *Streams) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, err := s.get(id); err != nil {
		return err
	}
	delete(s.db.streams, id)
	delete(s.db.analytics, id)
	kept := s.db.messages[:0]
	for _, m := range s.db.messages {
		if m.StreamID != id {
			kept = append(kept, m)
		}
	}
	s.db.messages = kept
	return nil
}

// IncrementViewers adds one viewer and returns the new count.
func (s *Streams) IncrementViewers(_ context.Context, id uuid.UUID) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, err := s.get(id)
	if err != nil {
		return 0, err
	}
	st.ViewerCount++
	st.UpdatedAt = now()
	return st.ViewerCount, nil
}

// DecrementViewers removes one viewer, never going below zero.
func (s *Streams) DecrementViewers(_ context.Context, id uuid.UUID) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, err := s.get(id)
	if err != nil {
		return 0, err
	}
	if st.ViewerCount > 0 {
		st.ViewerCount--
	}
	st.UpdatedAt = now()
	return st.ViewerCount, nil
}
