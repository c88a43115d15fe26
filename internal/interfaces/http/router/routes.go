package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockcore/backend/internal/interfaces/http/handler"
)

// LedgerRoutes registers the stock ledger API surface
type LedgerRoutes struct {
	stock        *handler.StockHandler
	movements    *handler.MovementHandler
	reservations *handler.ReservationHandler
}

// NewLedgerRoutes creates the route registrar for the ledger handlers
func NewLedgerRoutes(
	stock *handler.StockHandler,
	movements *handler.MovementHandler,
	reservations *handler.ReservationHandler,
) *LedgerRoutes {
	return &LedgerRoutes{
		stock:        stock,
		movements:    movements,
		reservations: reservations,
	}
}

// RegisterRoutes implements RouteRegistrar
func (r *LedgerRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	{
		stock.GET("/records", r.stock.List)
		stock.GET("/records/:id", r.stock.GetRecord)
		stock.PUT("/records/:id/reorder-threshold", r.stock.SetReorderThreshold)
		stock.GET("/records/:id/movements", r.movements.ListByStockRecord)
		stock.GET("/products/:product_id", r.stock.GetByProduct)
		stock.POST("/availability", r.stock.CheckAvailability)
		stock.POST("/receipts", r.stock.Receive)
		stock.POST("/adjustments", r.stock.Adjust)
		stock.POST("/transfers", r.stock.Transfer)
	}

	movements := rg.Group("/movements")
	{
		movements.GET("", r.movements.List)
		movements.GET("/:id", r.movements.Get)
		movements.POST("/:id/reverse", r.movements.Reverse)
	}

	reservations := rg.Group("/reservations")
	{
		reservations.POST("", r.reservations.Create)
		reservations.GET("", r.reservations.List)
		reservations.GET("/:id", r.reservations.Get)
		reservations.POST("/:id/fulfill", r.reservations.Fulfill)
		reservations.POST("/:id/release", r.reservations.Release)
	}
}

// RegisterHealthRoutes mounts liveness and readiness probes outside the
// versioned API group.
func RegisterHealthRoutes(engine *gin.Engine, ready func() error) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
