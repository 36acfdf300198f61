package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/config"
	"github.com/heyadhira/photoframe-api/mailer"
	"github.com/heyadhira/photoframe-api/notify"
)

// Deps bundles the shared dependencies the route groups wire into handlers.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Log      *zap.Logger
	Notifier *notify.Notifier
	Mail     mailer.Sender
}

// SetupRoutes is the single entry point that wires up every route group.
func SetupRoutes(r *gin.Engine, d Deps) {
	SetupCatalogRoutes(r, d)
	SetupCartRoutes(r, d)
	SetupOrderRoutes(r, d)
	SetupPaymentRoutes(r, d)
	SetupNotificationRoutes(r, d)
}
