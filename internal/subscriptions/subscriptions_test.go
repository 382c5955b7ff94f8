package subscriptions

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/memstore"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/apperr"
)

const secret = "whsec_test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGetDefaultsToFree(t *testing.T) {
	svc := NewService(memstore.New().Subscriptions(), nil, Config{}, nil)
	owner := uuid.New()
	sub, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, owner, sub.OwnerID)
}

func TestCheckoutThroughHTTPProvider(t *testing.T) {
	var got CheckoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer key_1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(CheckoutSession{URL: "https://pay.example/cs_1", CustomerID: "cus_1"})
	}))
	defer srv.Close()

	svc := NewService(memstore.New().Subscriptions(), NewHTTPProvider(srv.URL+"/", "key_1"), Config{
		SuccessURL: "https://app/ok",
		CancelURL:  "https://app/cancel",
	}, nil)
	owner := uuid.New()

	url, err := svc.Checkout(context.Background(), owner, models.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", url)
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, models.PlanPro, got.Plan)
	assert.Equal(t, "https://app/ok", got.SuccessURL)

	_, err = svc.Checkout(context.Background(), owner, models.PlanFree)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCheckoutProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(memstore.New().Subscriptions(), NewHTTPProvider(srv.URL, "k"), Config{}, nil)
	_, err := svc.Checkout(context.Background(), uuid.New(), models.PlanBusiness)
	assert.ErrorContains(t, err, "502")

	svc = NewService(memstore.New().Subscriptions(), nil, Config{}, nil)
	_, err = svc.Checkout(context.Background(), uuid.New(), models.PlanBusiness)
	assert.ErrorIs(t, err, ErrBillingDisabled)
}

func TestVerifySignature(t *testing.T) {
	svc := NewService(nil, nil, Config{WebhookSecret: secret}, nil)
	body := []byte(`{"plan":"PRO"}`)
	assert.True(t, svc.VerifySignature(body, sign(body)))
	assert.False(t, svc.VerifySignature(body, sign([]byte(`{"plan":"BUSINESS"}`))))
	assert.False(t, svc.VerifySignature(body, "zz"))
	assert.False(t, svc.VerifySignature(body, ""))

	unset := NewService(nil, nil, Config{}, nil)
	assert.False(t, unset.VerifySignature(body, sign(body)))
}

func TestWebhookUpdatesPlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := memstore.New()
	svc := NewService(db.Subscriptions(), nil, Config{WebhookSecret: secret}, nil)
	r := gin.New()
	r.POST("/webhooks/billing", NewHandler(svc, nil).Webhook)

	owner := uuid.New()
	body, _ := json.Marshal(PlanUpdate{Type: "subscription.updated", OwnerID: owner, Plan: models.PlanPro, Status: models.SubscriptionActive, CustomerID: "cus_9"})

	post := func(sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post("deadbeef"))
	_, err := db.Subscriptions().GetByOwner(context.Background(), owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, http.StatusOK, post(sign(body)))
	sub, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.Plan)
	assert.Equal(t, "cus_9", sub.ProviderCustomerID)

	// a later update without customer id keeps the stored one
	body, _ = json.Marshal(PlanUpdate{OwnerID: owner, Plan: models.PlanPro, Status: models.SubscriptionPastDue})
	assert.Equal(t, http.StatusOK, post(sign(body)))
	sub, err = svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, sub.Status)
	assert.Equal(t, "cus_9", sub.ProviderCustomerID)
}
