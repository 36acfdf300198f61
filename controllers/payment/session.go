package paymentControllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/config"
	cartControllers "github.com/heyadhira/photoframe-api/controllers/cart"
	"github.com/heyadhira/photoframe-api/middleware"
	"github.com/heyadhira/photoframe-api/models"
)

// Checkout flows offered by the storefront.
const (
	FlowFull = "full" // widget captures the order total
	FlowCOD  = "cod"  // widget captures the 10% advance, balance on delivery
)

var ErrEmptyCart = errors.New("cart is empty")

// providerSessionResponse is the payment provider's create-session reply.
type providerSessionResponse struct {
	Session struct {
		Ref string `json:"ref"`
		URL string `json:"url"`
	} `json:"session"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// createProviderSession asks the external provider for a hosted widget
// session and returns the widget URL plus the provider's session reference.
func createProviderSession(cfg *config.Config, amount decimal.Decimal, description string) (url, ref string, err error) {
	if cfg.PaymentAPIURL == "" || cfg.PaymentAPIKey == "" {
		return "", "", fmt.Errorf("payment provider configuration missing")
	}

	payload := map[string]interface{}{
		"method": "create",
		"key":    cfg.PaymentAPIKey,
		"session": map[string]interface{}{
			"amount":      amount.StringFixed(2),
			"currency":    cfg.Currency,
			"description": description,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.PaymentAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to reach payment provider: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("payment provider error (%d): %s", resp.StatusCode, string(raw))
	}

	var parsed providerSessionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", fmt.Errorf("failed to parse provider response: %w", err)
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("payment provider error: %s", parsed.Error.Message)
	}
	if parsed.Session.URL == "" {
		return "", "", fmt.Errorf("payment provider returned empty widget URL")
	}
	return parsed.Session.URL, parsed.Session.Ref, nil
}

// SessionAmounts computes the amount the widget must capture for a flow,
// plus the remainder due at delivery for COD. advance + remaining always
// equals the total.
func SessionAmounts(cfg *config.Config, total decimal.Decimal, flow string) (capture, remaining decimal.Decimal, err error) {
	switch flow {
	case FlowFull:
		return total, decimal.Zero, nil
	case FlowCOD:
		advance := total.Mul(cfg.CODAdvanceRate).Round(2)
		return advance, total.Sub(advance), nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("unknown checkout flow %q", flow)
	}
}

type createSessionInput struct {
	Flow string `json:"flow" binding:"required,oneof=full cod"`
}

// POST /payments/session
// Amounts are computed server-side from the caller's cart; the client only
// chooses the flow.
func CreateSessionHandler(db *gorm.DB, cfg *config.Config, lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var in createSessionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var cart models.Cart
		if err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil || len(cart.Items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrEmptyCart.Error()})
			return
		}

		subtotal := cartControllers.Subtotal(cart.Items)
		total := subtotal.Add(cfg.ShippingFor(subtotal))

		capture, remaining, err := SessionAmounts(cfg, total, in.Flow)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		widgetURL, ref, err := createProviderSession(cfg, capture, "Framed art order for "+userID)
		if err != nil {
			lg.Error("create payment session", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		session := models.PaymentSession{
			Ref:       ref,
			UserID:    userID,
			Flow:      in.Flow,
			Amount:    capture,
			Status:    models.SessionCreated,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(cfg.PaymentSessionTTL),
		}
		if err := db.Create(&session).Error; err != nil {
			lg.Error("persist payment session", zap.String("ref", ref), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"widget_url":  widgetURL,
			"session_ref": ref,
			"amount":      capture,
			"remaining":   remaining,
			"total":       total,
			"expires_at":  session.ExpiresAt,
		})
	}
}
