package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

// Subscriptions is the in-memory subscriptions table, unique per owner.
type Subscriptions struct {
	db *DB
}

// GetByOwner returns the owner's subscription.
func (s *Subscriptions) GetByOwner(_ context.Context, ownerID uuid.UUID) (*models.Subscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sub, ok := s.db.subscriptions[ownerID]
	if !ok {
		return nil, apperr.NotFound("subscription not found")
	}
	c := *sub
	return &c, nil
}

// Upsert inserts or replaces the owner's subscription.
func (s *Subscriptions) Upsert(_ context.Context, sub *models.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := now()
	if cur, ok := s.db.subscriptions[sub.OwnerID]; ok {
		sub.ID = cur.ID
		sub.CreatedAt = cur.CreatedAt
		if sub.ProviderCustomerID == "" {
			sub.ProviderCustomerID = cur.ProviderCustomerID
		}
	} else {
		sub.ID = uuid.New()
		sub.CreatedAt = t
	}
	sub.UpdatedAt = t
	c := *sub
	s.db.subscriptions[sub.OwnerID] = &c
	return nil
}
