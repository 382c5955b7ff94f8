package subscriptions

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/response"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Billing-Signature"

const maxWebhookBody = 64 * 1024

// CheckoutRequestBody is the body for POST /subscription/checkout.
type CheckoutRequestBody struct {
	Plan models.Plan `json:"plan" binding:"required"`
}

// Handler handles subscription endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a subscriptions handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /subscription.
func (h *Handler) Get(c *gin.Context) {
	sub, err := h.svc.Get(c.Request.Context(), middleware.MustIdentity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// Checkout handles POST /subscription/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	url, err := h.svc.Checkout(c.Request.Context(), middleware.MustIdentity(c).UserID, req.Plan)
	if err != nil {
		if errors.Is(err, ErrBillingDisabled) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"checkout_url": url})
}

// Webhook handles POST /webhooks/billing.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "could not read body")
		return
	}
	if !h.svc.VerifySignature(body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("billing webhook rejected: bad signature", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid signature")
		return
	}
	var u PlanUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	sub, err := h.svc.Apply(c.Request.Context(), u)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}
