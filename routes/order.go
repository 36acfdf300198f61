package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/heyadhira/photoframe-api/controllers/order"
	"github.com/heyadhira/photoframe-api/middleware"
)

// SetupOrderRoutes registers checkout and order lifecycle endpoints.
func SetupOrderRoutes(r *gin.Engine, d Deps) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken(d.Cfg.JWTSecret))
	{
		orders.POST("/", orderControllers.PlaceOrderHandler(d.DB, d.Cfg, d.Log, d.Notifier, d.Mail))
		orders.GET("/", orderControllers.ListOrdersHandler(d.DB))
		orders.GET("/:id", orderControllers.GetOrderHandler(d.DB))

		// Admin back office.
		orders.PUT("/:id", middleware.RequireAdmin(), orderControllers.UpdateOrderHandler(d.DB, d.Log, d.Notifier))
		orders.GET("/ws", middleware.RequireAdmin(), orderControllers.OrderFeedHandler)
	}
}
