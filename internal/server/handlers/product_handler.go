package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/catalog"
)

// CatalogService manages products.
type CatalogService interface {
	ListDetailed(ctx context.Context) ([]models.ProductDetail, error)
	Create(ctx context.Context, in catalog.ProductInput) (models.Product, error)
	Update(ctx context.Context, id string, patch catalog.ProductPatch) (models.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductHandler serves /api/products.
type ProductHandler struct {
	svc    CatalogService
	logger *zap.Logger
}

// NewProductHandler constructs the product handler.
func NewProductHandler(svc CatalogService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{svc: svc, logger: logger}
}

// List returns products with their recipe lines resolved.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.svc.ListDetailed(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(products))
}

func (h *ProductHandler) Create(c *gin.Context) {
	var in catalog.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	product, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var patch catalog.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	product, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
