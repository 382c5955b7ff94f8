package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

// Messages is the in-memory chat ledger.
type Messages struct {
	db *DB
}

// Create appends m. The stream must exist.
func (m *Messages) Create(_ context.Context, msg *models.Message) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if _, ok := m.db.streams[msg.StreamID]; !ok {
		return apperr.NotFound("stream not found")
	}
	msg.ID = uuid.New()
	msg.CreatedAt = now()
	m.db.messages = append(m.db.messages, *msg)
	return nil
}

// ListByStream returns messages newest first.
func (m *Messages) ListByStream(_ context.Context, streamID uuid.UUID, limit, offset int) ([]models.Message, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	list := make([]models.Message, 0, limit)
	skipped := 0
	// messages is in insertion order, so walking backwards yields newest first
	for i := len(m.db.messages) - 1; i >= 0 && len(list) < limit; i-- {
		msg := m.db.messages[i]
		if msg.StreamID != streamID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		list = append(list, msg)
	}
	return list, nil
}
