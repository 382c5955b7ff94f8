// Package subscriptions keeps each owner's billing plan in sync with the billing provider.
package subscriptions

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

// PlanUpdate is the billing provider's webhook body.
type PlanUpdate struct {
	Type             string                    `json:"type"`
	OwnerID          uuid.UUID                 `json:"owner_id"`
	Plan             models.Plan               `json:"plan"`
	Status           models.SubscriptionStatus `json:"status"`
	CustomerID       string                    `json:"customer_id"`
	CurrentPeriodEnd *time.Time                `json:"current_period_end"`
}

// Service reads plans, starts checkouts and applies provider updates.
type Service struct {
	store      Store
	provider   Provider
	successURL string
	cancelURL  string
	secret     []byte
	logger     *zap.Logger
}

// Config carries the provider redirect URLs and webhook signing secret.
type Config struct {
	SuccessURL    string
	CancelURL     string
	WebhookSecret string
}

// NewService creates a subscriptions service. provider may be nil when billing is not configured.
func NewService(store Store, provider Provider, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		provider:   provider,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		secret:     []byte(cfg.WebhookSecret),
		logger:     logger,
	}
}

// ErrBillingDisabled is returned by Checkout when no provider is configured.
var ErrBillingDisabled = errors.New("billing is not configured")

// Get returns the owner's subscription; owners without a record are on FREE.
func (s *Service) Get(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.store.GetByOwner(ctx, ownerID)
	if errors.Is(err, apperr.ErrNotFound) {
		free := models.FreeSubscription(ownerID)
		return &free, nil
	}
	return sub, err
}

// Checkout returns the provider's hosted checkout URL for plan.
func (s *Service) Checkout(ctx context.Context, ownerID uuid.UUID, plan models.Plan) (string, error) {
	if plan != models.PlanPro && plan != models.PlanBusiness {
		return "", apperr.Validation("plan must be PRO or BUSINESS")
	}
	if s.provider == nil {
		return "", ErrBillingDisabled
	}
	current, err := s.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}
	session, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		OwnerID:    ownerID,
		Plan:       plan,
		CustomerID: current.ProviderCustomerID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("checkout created", zap.String("owner_id", ownerID.String()), zap.String("plan", string(plan)))
	return session.URL, nil
}

// VerifySignature checks sig is the hex HMAC-SHA256 of body under the webhook secret.
// With no secret configured every signature is rejected.
func (s *Service) VerifySignature(body []byte, sig string) bool {
	if len(s.secret) == 0 || sig == "" {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Apply stores a verified plan update.
func (s *Service) Apply(ctx context.Context, u PlanUpdate) (*models.Subscription, error) {
	if u.OwnerID == uuid.Nil {
		return nil, apperr.Validation("owner_id is required")
	}
	switch u.Plan {
	case models.PlanFree, models.PlanPro, models.PlanBusiness:
	default:
		return nil, apperr.Validation("unknown plan %q", u.Plan)
	}
	switch u.Status {
	case models.SubscriptionActive, models.SubscriptionPastDue, models.SubscriptionCanceled:
	default:
		return nil, apperr.Validation("unknown status %q", u.Status)
	}
	sub := &models.Subscription{
		OwnerID:            u.OwnerID,
		Plan:               u.Plan,
		Status:             u.Status,
		ProviderCustomerID: u.CustomerID,
		CurrentPeriodEnd:   u.CurrentPeriodEnd,
	}
	if err := s.store.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("subscription updated",
		zap.String("owner_id", u.OwnerID.String()),
		zap.String("plan", string(u.Plan)),
		zap.String("status", string(u.Status)),
	)
	return sub, nil
}
