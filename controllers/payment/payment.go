package paymentControllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/middleware"
	"github.com/heyadhira/photoframe-api/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicatePayment = errors.New("payment reference already recorded")
	ErrInvalidStatus    = errors.New("invalid payment status")
)

func parsePaymentStatus(s string) (models.PaymentStatus, error) {
	switch models.PaymentStatus(strings.ToLower(s)) {
	case models.PaymentStatusPending:
		return models.PaymentStatusPending, nil
	case models.PaymentStatusCompleted:
		return models.PaymentStatusCompleted, nil
	case models.PaymentStatusPartial:
		return models.PaymentStatusPartial, nil
	case models.PaymentStatusFailed:
		return models.PaymentStatusFailed, nil
	default:
		return "", ErrInvalidStatus
	}
}

type CreatePaymentInput struct {
	OrderID           string `json:"order_id" binding:"required"`
	Amount            string `json:"amount" binding:"required"`
	PaymentMethod     string `json:"payment_method" binding:"required"`
	ProviderPaymentID string `json:"payment_id" binding:"required"`
	ProviderSignature string `json:"payment_signature"`
	Status            string `json:"status" binding:"required"`
}

// CreatePayment records a settlement event and cascades its status onto the
// parent order. The cascade is one-directional: the order never drives
// payment state.
func CreatePayment(db *gorm.DB, in CreatePaymentInput) (*models.Payment, error) {
	status, err := parsePaymentStatus(in.Status)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil || amount.IsNegative() {
		return nil, errors.New("invalid amount")
	}

	var payment *models.Payment
	err = db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.Payment{}).
			Where("provider_payment_id = ?", in.ProviderPaymentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicatePayment
		}

		payment = &models.Payment{
			ID:                "PAY-" + uuid.NewString(),
			OrderID:           order.ID,
			Amount:            amount,
			PaymentMethod:     in.PaymentMethod,
			ProviderPaymentID: in.ProviderPaymentID,
			ProviderSignature: in.ProviderSignature,
			Status:            status,
			CreatedAt:         time.Now(),
		}
		if err := tx.Create(payment).Error; err != nil {
			// A concurrent insert of the same provider reference passes the
			// count and lands on the unique index instead.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePayment
			}
			return err
		}

		return cascadeToOrder(tx, order.ID, status)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePaymentStatus sets a payment's status and cascades it to the order.
func UpdatePaymentStatus(db *gorm.DB, paymentID string, status models.PaymentStatus) (*models.Payment, error) {
	var payment models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		payment.Status = status
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}
		return cascadeToOrder(tx, payment.OrderID, status)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func cascadeToOrder(tx *gorm.DB, orderID string, status models.PaymentStatus) error {
	return tx.Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now(),
		}).Error
}

// -------- Handlers --------

// POST /payments
func CreatePaymentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreatePaymentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		// Non-admin callers may only record payments against their own orders.
		if !middleware.IsAdmin(c) {
			var order models.Order
			if err := db.First(&order, "id = ?", in.OrderID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": ErrOrderNotFound.Error()})
				return
			}
			if order.UserID != middleware.UserID(c) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Not your order"})
				return
			}
		}

		payment, err := CreatePayment(db, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, ErrDuplicatePayment):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, ErrInvalidStatus):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"payment": payment})
	}
}

// PUT /payments/:id (admin)
func UpdatePaymentStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		status, err := parsePaymentStatus(in.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		payment, err := UpdatePaymentStatus(db, c.Param("id"), status)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment": payment})
	}
}
