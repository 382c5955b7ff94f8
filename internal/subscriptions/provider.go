package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
)

// CheckoutRequest asks the billing provider for a hosted checkout page.
type CheckoutRequest struct {
	OwnerID    uuid.UUID   `json:"owner_id"`
	Plan       models.Plan `json:"plan"`
	CustomerID string      `json:"customer_id,omitempty"`
	SuccessURL string      `json:"success_url"`
	CancelURL  string      `json:"cancel_url"`
}

// CheckoutSession is the provider's answer.
type CheckoutSession struct {
	URL        string `json:"url"`
	CustomerID string `json:"customer_id"`
}

// Provider creates checkout sessions.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// HTTPProvider talks to a billing API that accepts POST {base}/checkout/sessions with a bearer key.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a billing API client.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCheckout posts the request and decodes the session.
func (p *HTTPProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("checkout status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode checkout: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("checkout response has no url")
	}
	return &session, nil
}
