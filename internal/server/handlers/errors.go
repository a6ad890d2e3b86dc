package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/catalog"
	"github.com/mamadbah2/kitchenpos/internal/service/checkout"
	"github.com/mamadbah2/kitchenpos/internal/service/inventory"
	"github.com/mamadbah2/kitchenpos/internal/service/sales"
)

// statusFor maps service errors onto HTTP status codes. retryable marks
// transient failures the client may resend unchanged.
func statusFor(err error) (status int, retryable bool) {
	switch {
	case errors.Is(err, checkout.ErrValidation),
		errors.Is(err, inventory.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, sales.ErrInvalidRange):
		return http.StatusBadRequest, false
	case errors.Is(err, inventory.ErrItemInUse):
		return http.StatusBadRequest, false
	case errors.Is(err, checkout.ErrNotFound), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, checkout.ErrCheckoutInProgress),
		errors.Is(err, models.ErrDuplicateName):
		return http.StatusConflict, false
	case errors.Is(err, checkout.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, false
	case checkout.Retryable(err), errors.Is(err, models.ErrVersionConflict):
		return http.StatusServiceUnavailable, true
	default:
		return http.StatusInternalServerError, false
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, retryable := statusFor(err)

	body := gin.H{"message": err.Error()}
	if retryable {
		body["retryable"] = true
	}

	var stock *checkout.InsufficientStockError
	if errors.As(err, &stock) {
		body["inventoryId"] = stock.ItemID
		body["inventoryItem"] = stock.ItemName
		body["available"] = stock.Available
		body["needed"] = stock.Needed
		body["unit"] = stock.Unit
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}

	c.JSON(status, body)
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
}
