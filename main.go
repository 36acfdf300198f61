package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/config"
	"github.com/heyadhira/photoframe-api/mailer"
	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/notify"
	"github.com/heyadhira/photoframe-api/routes"
)

func main() {
	lg, _ := zap.NewProduction()
	defer lg.Sync()

	cfg, err := config.Load()
	if err != nil {
		lg.Fatal("load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatal("connect database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.PaymentSession{},
		&models.Notification{},
	); err != nil {
		lg.Fatal("auto migrate", zap.Error(err))
	}

	var sender mailer.Sender = mailer.NopSender{}
	if cfg.MailServiceURL != "" {
		sender = mailer.NewHTTPSender(cfg.MailServiceURL)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Log:      lg,
		Notifier: notify.New(db, lg),
		Mail:     sender,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		lg.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown", zap.Error(err))
		}
	}()

	lg.Info("server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server", zap.Error(err))
	}
}
