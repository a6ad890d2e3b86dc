package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/inventory"
)

// InventoryService manages raw materials.
type InventoryService interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	Shortages(ctx context.Context) ([]models.InventoryItem, error)
	AddStock(ctx context.Context, in inventory.StockInput) (models.InventoryItem, bool, error)
	Edit(ctx context.Context, id string, patch inventory.ItemPatch) (models.InventoryItem, error)
	Delete(ctx context.Context, id string) error
}

// InventoryHandler serves /api/inventory.
type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

// NewInventoryHandler constructs the inventory handler.
func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// List returns every inventory item.
func (h *InventoryHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

// Shortages returns items at or below their minimum.
func (h *InventoryHandler) Shortages(c *gin.Context) {
	items, err := h.svc.Shortages(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

// AddStock restocks an existing item by name or creates a new one.
func (h *InventoryHandler) AddStock(c *gin.Context) {
	var in inventory.StockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	item, created, err := h.svc.AddStock(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, item)
}

// Edit overwrites the provided fields of one item.
func (h *InventoryHandler) Edit(c *gin.Context) {
	var patch inventory.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	item, err := h.svc.Edit(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete removes an item no recipe references.
func (h *InventoryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
