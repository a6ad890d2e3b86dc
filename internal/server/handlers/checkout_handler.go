package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// IdempotencyHeader carries the client's retry key for a checkout.
const IdempotencyHeader = "Idempotency-Key"

// CheckoutService runs a checkout, once per idempotency key.
type CheckoutService interface {
	CheckoutOnce(ctx context.Context, key string, req models.CheckoutRequest) (models.Receipt, error)
}

// CheckoutHandler serves the billing endpoint.
type CheckoutHandler struct {
	svc    CheckoutService
	logger *zap.Logger
}

// NewCheckoutHandler constructs the billing handler.
func NewCheckoutHandler(svc CheckoutService, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{svc: svc, logger: logger}
}

type checkoutRequest struct {
	Items         []models.CartLine `json:"items"`
	CustomerEmail string            `json:"customerEmail"`
}

type checkoutResponse struct {
	Message string            `json:"message"`
	SaleID  string            `json:"saleId"`
	Total   float64           `json:"total"`
	Alerts  []models.Advisory `json:"alerts"`
}

// Checkout processes a bill.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	receipt, err := h.svc.CheckoutOnce(c.Request.Context(), key, models.CheckoutRequest{
		Lines:           req.Items,
		CustomerContact: strings.TrimSpace(req.CustomerEmail),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	alerts := receipt.Advisories
	if alerts == nil {
		alerts = []models.Advisory{}
	}
	c.JSON(http.StatusOK, checkoutResponse{
		Message: "Order Successful!",
		SaleID:  receipt.SaleID,
		Total:   receipt.Total,
		Alerts:  alerts,
	})
}
