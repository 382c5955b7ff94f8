// Package chat is the per-stream message ledger.
package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/internal/realtime"
	"github.com/sportcast/backend/pkg/apperr"
)

const (
	// SystemSender is the display name on SYSTEM messages.
	SystemSender = "System"
	// DefaultLimit and MaxLimit bound List page sizes.
	DefaultLimit = 50
	MaxLimit     = 100
)

// StreamLookup checks the stream a message targets exists.
type StreamLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Stream, error)
}

// MessageCounter counts messages in the stream's rollups. Implemented by analytics.Aggregator.
type MessageCounter interface {
	RecordMessage(ctx context.Context, streamID uuid.UUID)
}

// Service appends and lists chat messages.
type Service struct {
	store     Store
	streams   StreamLookup
	analytics MessageCounter
	bus       realtime.Publisher
	logger    *zap.Logger
}

// NewService creates a chat service.
func NewService(store Store, streams StreamLookup, analytics MessageCounter, bus realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, streams: streams, analytics: analytics, bus: bus, logger: logger}
}

// SendInput is a viewer message.
type SendInput struct {
	StreamID   uuid.UUID
	SenderID   uuid.UUID
	SenderName string
	Content    string
	Type       models.MessageType // TEXT when empty
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("message must not be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return apperr.Validation("message must be at most %d characters", models.MaxMessageLength)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Send appends a viewer message. SYSTEM is reserved for SendSystem.
func (s *Service) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	if in.Type != models.MessageTypeText && in.Type != models.MessageTypeEmoji {
		return nil, apperr.Validation("message type must be TEXT or EMOJI")
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	senderID := in.SenderID
	return s.append(ctx, &models.Message{
		StreamID:   in.StreamID,
		SenderID:   &senderID,
		SenderName: truncateRunes(in.SenderName, models.MaxSenderNameLength),
		Content:    in.Content,
		Type:       in.Type,
	})
}

// SendSystem appends an announcement with no sender.
func (s *Service) SendSystem(ctx context.Context, streamID uuid.UUID, content string) (*models.Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	return s.append(ctx, &models.Message{
		StreamID:   streamID,
		SenderName: SystemSender,
		Content:    content,
		Type:       models.MessageTypeSystem,
	})
}

func (s *Service) append(ctx context.Context, m *models.Message) (*models.Message, error) {
	if _, err := s.streams.GetByID(ctx, m.StreamID); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	s.analytics.RecordMessage(ctx, m.StreamID)
	if err := s.bus.Publish(ctx, realtime.TopicMessageAdded, m.StreamID, m); err != nil {
		s.logger.Warn("publish message failed", zap.String("stream_id", m.StreamID.String()), zap.Error(err))
	}
	return m, nil
}

// List returns messages newest first. limit is clamped to [1, MaxLimit] (0 means DefaultLimit); negative
// offsets are treated as 0.
func (s *Service) List(ctx context.Context, streamID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByStream(ctx, streamID, limit, offset)
}
