package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// SalesService reads the sale history.
type SalesService interface {
	List(ctx context.Context, limit int) ([]models.Sale, error)
	Get(ctx context.Context, id string) (models.Sale, error)
}

// SalesHandler serves /api/sales.
type SalesHandler struct {
	svc    SalesService
	logger *zap.Logger
}

// NewSalesHandler constructs the sales handler.
func NewSalesHandler(svc SalesService, logger *zap.Logger) *SalesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesHandler{svc: svc, logger: logger}
}

// List returns the latest sales, newest first. ?limit caps the result.
func (h *SalesHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	sales, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(sales))
}

// Get returns one sale.
func (h *SalesHandler) Get(c *gin.Context) {
	sale, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
