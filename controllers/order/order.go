package orderControllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/config"
	cartControllers "github.com/heyadhira/photoframe-api/controllers/cart"
	paymentControllers "github.com/heyadhira/photoframe-api/controllers/payment"
	"github.com/heyadhira/photoframe-api/mailer"
	"github.com/heyadhira/photoframe-api/middleware"
	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/notify"
	"github.com/heyadhira/photoframe-api/pricing"
)

var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrDuplicateOrder   = errors.New("payment confirmation already consumed")
	ErrSessionExpired   = errors.New("payment session expired")
	ErrSessionMismatch  = errors.New("payment session does not match this checkout")
	ErrMissingAddress   = errors.New("shipping address is incomplete")
)

// PlaceOrderRequest is the POST /orders body. Totals are recomputed from the
// price tables; any client-side numbers are ignored.
type PlaceOrderRequest struct {
	ShippingAddress  models.Address `json:"shipping_address" binding:"required"`
	PaymentMethod    string         `json:"payment_method" binding:"required,oneof=card cod"`
	SessionRef       string         `json:"session_ref" binding:"required"`
	PaymentID        string         `json:"payment_id" binding:"required"`
	PaymentSignature string         `json:"payment_signature" binding:"required"`
}

type PlaceOrderResult struct {
	Order     *models.Order
	Payment   *models.Payment
	Advance   decimal.Decimal
	Remaining decimal.Decimal
}

// generateOrderRef builds a server-generated, human-traceable order id.
func generateOrderRef() string {
	return "ORD-" + time.Now().Format("20060102") + "-" + uuid.NewString()[:8]
}

// PlaceOrder converts the caller's cart into an immutable order. Price
// re-derivation, the order insert, the payment record, the cart clear and
// the session consumption all commit in one transaction; the widget
// confirmation is consumed at most once.
func PlaceOrder(
	db *gorm.DB,
	cfg *config.Config,
	userID string,
	req PlaceOrderRequest,
) (*PlaceOrderResult, error) {
	if !paymentControllers.VerifySignature(cfg.PaymentWebhookSecret, req.SessionRef, req.PaymentID, req.PaymentSignature) {
		return nil, ErrInvalidSignature
	}
	addr := req.ShippingAddress
	if addr.FullName == "" || addr.Street == "" || addr.City == "" || addr.PostalCode == "" {
		return nil, ErrMissingAddress
	}

	var result *PlaceOrderResult
	err := cartControllers.WithUserLock(userID, func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			// The widget confirmation is at-most-once: a replayed callback
			// with a known payment reference must not create a second order.
			var dup int64
			if err := tx.Model(&models.Order{}).
				Where("provider_payment_id = ?", req.PaymentID).
				Count(&dup).Error; err != nil {
				return err
			}
			if dup > 0 {
				return ErrDuplicateOrder
			}

			var session models.PaymentSession
			err := tx.First(&session, "ref = ?", req.SessionRef).Error
			switch {
			case err == nil:
				if session.Status == models.SessionConsumed {
					return ErrDuplicateOrder
				}
				if time.Now().After(session.ExpiresAt) {
					// The abandoned mark is written after this transaction
					// rolls back; writing it here would be undone.
					return ErrSessionExpired
				}
				if session.UserID != userID {
					return ErrSessionMismatch
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			var cart models.Cart
			if err := tx.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCartEmpty
				}
				return err
			}
			if len(cart.Items) == 0 {
				return ErrCartEmpty
			}

			// Re-derive every unit price from the tables; stored cart prices
			// are a display convenience, not an authority.
			subtotal := decimal.Zero
			orderItems := make([]models.OrderItem, 0, len(cart.Items))
			for _, item := range cart.Items {
				unitPrice, err := pricing.Resolve(
					item.Size,
					pricing.Format(item.Format),
					pricing.ParseSubsection(item.Subsection),
				)
				if err != nil {
					return fmt.Errorf("line %s %s/%s: %w", item.ProductID, item.Size, item.Format, err)
				}
				subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
				orderItems = append(orderItems, models.OrderItem{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Size:        item.Size,
					Color:       item.Color,
					Format:      item.Format,
					FrameColor:  item.FrameColor,
					Subsection:  item.Subsection,
					UnitPrice:   unitPrice,
					Quantity:    item.Quantity,
				})
			}

			shipping := cfg.ShippingFor(subtotal)
			total := subtotal.Add(shipping)

			flow := paymentControllers.FlowFull
			paymentStatus := models.PaymentStatusCompleted
			if req.PaymentMethod == models.PaymentMethodCOD {
				flow = paymentControllers.FlowCOD
				paymentStatus = models.PaymentStatusPartial
			}
			// A session was created for one flow and one capture amount; a
			// checkout under a different method would record a settlement the
			// widget never captured.
			if session.Ref != "" && session.Flow != flow {
				return ErrSessionMismatch
			}
			capture, remaining, err := paymentControllers.SessionAmounts(cfg, total, flow)
			if err != nil {
				return err
			}
			if session.Ref != "" && !session.Amount.Equal(capture) {
				return ErrSessionMismatch
			}

			now := time.Now()
			order := models.Order{
				ID:                generateOrderRef(),
				UserID:            userID,
				Items:             orderItems,
				ShippingAddress:   addr,
				Subtotal:          subtotal,
				Shipping:          shipping,
				Total:             total,
				PaymentMethod:     req.PaymentMethod,
				ProviderPaymentID: req.PaymentID,
				PaymentSignature:  req.PaymentSignature,
				Status:            models.OrderStatusPending,
				PaymentStatus:     paymentStatus,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := tx.Create(&order).Error; err != nil {
				// A concurrent replay from another user can slip past the
				// count and land on the unique index instead.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateOrder
				}
				return err
			}

			payment := models.Payment{
				ID:                "PAY-" + uuid.NewString(),
				OrderID:           order.ID,
				Amount:            capture,
				PaymentMethod:     req.PaymentMethod,
				ProviderPaymentID: req.PaymentID,
				ProviderSignature: req.PaymentSignature,
				Status:            paymentStatus,
				CreatedAt:         now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateOrder
				}
				return err
			}

			if err := cartControllers.ClearItemsTx(tx, cart.CartID); err != nil {
				return err
			}

			if session.Ref != "" {
				session.Status = models.SessionConsumed
				if err := tx.Save(&session).Error; err != nil {
					return err
				}
			}

			result = &PlaceOrderResult{
				Order:     &order,
				Payment:   &payment,
				Advance:   capture,
				Remaining: remaining,
			}
			return nil
		})
	})
	if err != nil {
		// The expired mark must survive the rolled-back order transaction, so
		// it is written on the outer handle.
		if errors.Is(err, ErrSessionExpired) {
			if uerr := db.Model(&models.PaymentSession{}).
				Where("ref = ? AND status = ?", req.SessionRef, models.SessionCreated).
				Update("status", models.SessionAbandoned).Error; uerr != nil {
				return nil, errors.Join(err, uerr)
			}
		}
		return nil, err
	}
	return result, nil
}

// sendConfirmationMail delivers the order-confirmation email. Best effort:
// failures are logged, never surfaced to the checkout flow.
func sendConfirmationMail(db *gorm.DB, cfg *config.Config, lg *zap.Logger, sender mailer.Sender, order *models.Order) {
	var user models.User
	if err := db.First(&user, "id = ?", order.UserID).Error; err != nil {
		lg.Warn("confirmation mail skipped, user unknown",
			zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	html := fmt.Sprintf(
		"<h1>Thank you for your order!</h1><p>Order <b>%s</b> was placed successfully. Total: %s %s.</p>",
		order.ID, cfg.Currency, order.Total.StringFixed(2),
	)
	if order.PaymentStatus == models.PaymentStatusPartial {
		remaining := order.Total.Sub(order.Total.Mul(cfg.CODAdvanceRate).Round(2))
		html += fmt.Sprintf("<p>Advance received. %s %s is due on delivery.</p>",
			cfg.Currency, remaining.StringFixed(2))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := sender.Send(ctx, mailer.Message{
		To:      user.Email,
		From:    cfg.MailFrom,
		Subject: "Order confirmation " + order.ID,
		HTML:    html,
	})
	if err != nil {
		lg.Error("send confirmation mail", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// -------- Handlers --------

// POST /orders
func PlaceOrderHandler(db *gorm.DB, cfg *config.Config, lg *zap.Logger, notifier *notify.Notifier, sender mailer.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		result, err := PlaceOrder(db, cfg, userID, req)
		if err != nil {
			switch {
			case errors.Is(err, ErrDuplicateOrder):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, ErrInvalidSignature),
				errors.Is(err, ErrCartEmpty),
				errors.Is(err, ErrSessionExpired),
				errors.Is(err, ErrSessionMismatch),
				errors.Is(err, ErrMissingAddress),
				errors.Is(err, pricing.ErrUnavailable):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				lg.Error("place order", zap.String("user_id", userID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
			}
			return
		}

		order := result.Order
		notifier.OrderPlaced(order)
		broadcastOrderEvent(lg, "order.created", order)
		go sendConfirmationMail(db, cfg, lg, sender, order)

		c.JSON(http.StatusCreated, gin.H{
			"order":     order,
			"payment":   result.Payment,
			"advance":   result.Advance,
			"remaining": result.Remaining,
		})
	}
}

// GET /orders returns own orders for a regular user, all orders for an admin.
func ListOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Preload("Items").Order("created_at DESC")
		if !middleware.IsAdmin(c) {
			q = q.Where("user_id = ?", middleware.UserID(c))
		}

		var orders []models.Order
		if err := q.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// GET /orders/:id, visible to the owner or an admin.
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var order models.Order
		if err := db.Preload("Items").First(&order, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}

		if order.UserID != middleware.UserID(c) && !middleware.IsAdmin(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your order"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}
