package subscriptions

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

// Store persists one subscription per owner.
type Store interface {
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, error)
	// Upsert writes sub keyed by owner. An empty ProviderCustomerID keeps the stored one.
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// Repository handles subscriptions persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subscriptions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByOwner returns the owner's subscription.
func (r *Repository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, error) {
	const q = `SELECT id, owner_id, plan, status, provider_customer_id, current_period_end, created_at, updated_at
		FROM subscriptions WHERE owner_id = $1`
	var s models.Subscription
	err := r.pool.QueryRow(ctx, q, ownerID).Scan(&s.ID, &s.OwnerID, &s.Plan, &s.Status, &s.ProviderCustomerID,
		&s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("subscription not found")
		}
		return nil, err
	}
	return &s, nil
}

// Upsert inserts or updates by owner_id.
func (r *Repository) Upsert(ctx context.Context, sub *models.Subscription) error {
	const q = `INSERT INTO subscriptions (id, owner_id, plan, status, provider_customer_id, current_period_end)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			provider_customer_id = COALESCE(NULLIF(EXCLUDED.provider_customer_id, ''), subscriptions.provider_customer_id),
			current_period_end = EXCLUDED.current_period_end,
			updated_at = NOW()
		RETURNING id, provider_customer_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, sub.OwnerID, sub.Plan, sub.Status, sub.ProviderCustomerID, sub.CurrentPeriodEnd).
		Scan(&sub.ID, &sub.ProviderCustomerID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}
