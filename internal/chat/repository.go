package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

// Store is the append-only message ledger.
type Store interface {
	// Create assigns ID and CreatedAt. A missing stream is a NotFound error.
	Create(ctx context.Context, m *models.Message) error
	// ListByStream returns messages newest first.
	ListByStream(ctx context.Context, streamID uuid.UUID, limit, offset int) ([]models.Message, error)
}

// Repository handles messages persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a message.
func (r *Repository) Create(ctx context.Context, m *models.Message) error {
	const q = `INSERT INTO messages (id, stream_id, sender_id, sender_name, content, type)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, m.StreamID, m.SenderID, m.SenderName, m.Content, m.Type).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.NotFound("stream not found")
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListByStream returns a page of messages, newest first.
func (r *Repository) ListByStream(ctx context.Context, streamID uuid.UUID, limit, offset int) ([]models.Message, error) {
	const q = `SELECT id, stream_id, sender_id, sender_name, content, type, created_at
		FROM messages WHERE stream_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, streamID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Message, 0, limit)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.StreamID, &m.SenderID, &m.SenderName, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
