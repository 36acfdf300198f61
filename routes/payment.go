package routes

import (
	"github.com/gin-gonic/gin"

	paymentControllers "github.com/heyadhira/photoframe-api/controllers/payment"
	"github.com/heyadhira/photoframe-api/middleware"
)

// SetupPaymentRoutes registers the payment widget session endpoint and the
// settlement record endpoints.
func SetupPaymentRoutes(r *gin.Engine, d Deps) {
	payments := r.Group("/payments")
	payments.Use(middleware.ValidateToken(d.Cfg.JWTSecret))
	{
		payments.POST("/session", paymentControllers.CreateSessionHandler(d.DB, d.Cfg, d.Log))
		payments.POST("/", paymentControllers.CreatePaymentHandler(d.DB))
		payments.PUT("/:id", middleware.RequireAdmin(), paymentControllers.UpdatePaymentStatusHandler(d.DB))
	}
}
