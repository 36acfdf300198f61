package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/heyadhira/photoframe-api/controllers/cart"
	notificationControllers "github.com/heyadhira/photoframe-api/controllers/notification"
	productControllers "github.com/heyadhira/photoframe-api/controllers/product"
	"github.com/heyadhira/photoframe-api/middleware"
)

// SetupCatalogRoutes registers the public read-only catalog endpoints.
func SetupCatalogRoutes(r *gin.Engine, d Deps) {
	products := r.Group("/products")
	{
		products.GET("/", productControllers.GetProductsHandler(d.DB))
		products.GET("/:id", productControllers.GetProductByIDHandler(d.DB))
	}
}

// SetupCartRoutes registers the shopping cart endpoints. Requires a bearer
// token.
func SetupCartRoutes(r *gin.Engine, d Deps) {
	cart := r.Group("/cart")
	cart.Use(middleware.ValidateToken(d.Cfg.JWTSecret))
	{
		cart.GET("/", cartControllers.GetCartHandler(d.DB, d.Cfg))
		cart.POST("/", cartControllers.AddToCartHandler(d.DB))
		cart.PUT("/", cartControllers.SetQuantityHandler(d.DB))
		cart.DELETE("/:product_id", cartControllers.RemoveItemHandler(d.DB))
	}
}

// SetupNotificationRoutes registers the per-recipient notification
// endpoints. Requires a bearer token.
func SetupNotificationRoutes(r *gin.Engine, d Deps) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.ValidateToken(d.Cfg.JWTSecret))
	{
		notifications.GET("/", notificationControllers.ListNotificationsHandler(d.DB))
		notifications.POST("/:id/read", notificationControllers.MarkReadHandler(d.DB))
		notifications.DELETE("/:id", notificationControllers.DeleteNotificationHandler(d.DB))
	}
}
