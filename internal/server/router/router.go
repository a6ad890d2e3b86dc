package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/metrics"
	"github.com/mamadbah2/kitchenpos/internal/server/handlers"
	"github.com/mamadbah2/kitchenpos/internal/tracing"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	Checkout  *handlers.CheckoutHandler
	Inventory *handlers.InventoryHandler
	Products  *handlers.ProductHandler
	Sales     *handlers.SalesHandler
	Webhook   *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.Middleware())
	r.Use(metrics.Middleware)
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")
	api.POST("/billing/checkout", h.Checkout.Checkout)

	inventory := api.Group("/inventory")
	inventory.GET("", h.Inventory.List)
	inventory.POST("", h.Inventory.AddStock)
	inventory.GET("/shortages", h.Inventory.Shortages)
	inventory.PUT("/:id", h.Inventory.Edit)
	inventory.DELETE("/:id", h.Inventory.Delete)

	products := api.Group("/products")
	products.GET("", h.Products.List)
	products.POST("", h.Products.Create)
	products.PUT("/:id", h.Products.Update)
	products.DELETE("/:id", h.Products.Delete)

	api.GET("/sales", h.Sales.List)
	api.GET("/sales/:id", h.Sales.Get)

	r.GET("/webhook", h.Webhook.Verify)
	r.POST("/webhook", h.Webhook.Receive)
	r.POST("/send-message", h.Webhook.SendMessage)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("router initialized")
	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
