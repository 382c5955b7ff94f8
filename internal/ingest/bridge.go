// Package ingest maps media-ingest server callbacks onto the stream lifecycle.
package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

const (
	MessageStarted = "Stream has started!"
	MessageEnded   = "Stream has ended. Thanks for watching!"
)

// Lifecycle drives stream transitions by session key. Implemented by streams.Registry.
type Lifecycle interface {
	ByKey(ctx context.Context, key string) (*models.Stream, error)
	// StartByKey and EndByKey report whether this call made the transition.
	StartByKey(ctx context.Context, key string) (s *models.Stream, started bool, err error)
	EndByKey(ctx context.Context, key string) (s *models.Stream, ended bool, err error)
}

// Announcer posts system chat messages. Implemented by chat.Service.
type Announcer interface {
	SendSystem(ctx context.Context, streamID uuid.UUID, content string) (*models.Message, error)
}

// Bridge handles on-publish, on-publish-done, on-play and on-play-done. The caller is trusted; the
// session key is the only credential.
type Bridge struct {
	streams Lifecycle
	chat    Announcer
	logger  *zap.Logger
}

// NewBridge creates a webhook bridge.
func NewBridge(streams Lifecycle, chat Announcer, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{streams: streams, chat: chat, logger: logger}
}

// unauthorized collapses lookup and state failures so a caller cannot tell a wrong key from an inactive one.
func unauthorized(err error, msg string) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidTransition) {
		return apperr.Unauthorized(msg)
	}
	return err
}

// Publish starts the stream behind key and announces it. Re-publishing a LIVE stream is accepted
// without a second announcement; of concurrent callbacks only the one that wins the transition announces.
func (b *Bridge) Publish(ctx context.Context, key string) (*models.Stream, error) {
	s, started, err := b.streams.StartByKey(ctx, key)
	if err != nil {
		return nil, unauthorized(err, "invalid stream key")
	}
	if started {
		b.announce(ctx, s.ID, MessageStarted)
	}
	b.logger.Info("ingest publish", zap.String("stream_id", s.ID.String()))
	return s, nil
}

// PublishDone ends the stream behind key. found is false for an unknown key; that is not an error
// because the ingest server sends publish-done for feeds it never authorized.
func (b *Bridge) PublishDone(ctx context.Context, key string) (found bool, err error) {
	s, ended, err := b.streams.EndByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return true, err
	}
	if ended {
		b.announce(ctx, s.ID, MessageEnded)
	}
	b.logger.Info("ingest publish done", zap.String("stream_id", s.ID.String()))
	return true, nil
}

// Play authorizes playback: the key must resolve to a LIVE stream.
func (b *Bridge) Play(ctx context.Context, key string) (*models.Stream, error) {
	s, err := b.streams.ByKey(ctx, key)
	if err != nil {
		return nil, unauthorized(err, "invalid stream key")
	}
	if s.Status != models.StreamStatusLive {
		return nil, apperr.Unauthorized("stream is not live")
	}
	return s, nil
}

func (b *Bridge) announce(ctx context.Context, streamID uuid.UUID, content string) {
	if _, err := b.chat.SendSystem(ctx, streamID, content); err != nil {
		b.logger.Warn("system message failed", zap.String("stream_id", streamID.String()), zap.Error(err))
	}
}
