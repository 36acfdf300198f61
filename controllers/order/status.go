package orderControllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/notify"
)

var (
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func parseOrderStatus(s string) (models.OrderStatus, error) {
	switch models.OrderStatus(strings.ToLower(s)) {
	case models.OrderStatusPending:
		return models.OrderStatusPending, nil
	case models.OrderStatusConfirmed:
		return models.OrderStatusConfirmed, nil
	case models.OrderStatusProcessing:
		return models.OrderStatusProcessing, nil
	case models.OrderStatusShipped:
		return models.OrderStatusShipped, nil
	case models.OrderStatusDelivered:
		return models.OrderStatusDelivered, nil
	case models.OrderStatusCancelled:
		return models.OrderStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// allowedTransitions is the delivery-status machine. Cancellation is only
// reachable before shipping; delivered is terminal.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateOrderInput carries the admin's merge update; nil fields stay
// unchanged.
type UpdateOrderInput struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

// ApplyUpdate runs an admin transition and fires the owner notification and
// feed event when the delivery status actually changed. No-op transitions
// and payment-status-only updates stay silent.
func ApplyUpdate(db *gorm.DB, lg *zap.Logger, notifier *notify.Notifier, orderID string, in UpdateOrderInput) (*models.Order, error) {
	order, previous, err := UpdateOrder(db, orderID, in)
	if err != nil {
		return nil, err
	}
	if order.Status != previous {
		notifier.OrderStatusChanged(order)
		broadcastOrderEvent(lg, "order.status", order)
	}
	return order, nil
}

// UpdateOrder applies an admin transition to one or both status axes. The
// previous delivery status is returned so callers can decide whether a
// notification is due: a no-op transition is silent.
func UpdateOrder(db *gorm.DB, orderID string, in UpdateOrderInput) (order *models.Order, previous models.OrderStatus, err error) {
	var o models.Order
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&o, "id = ?", orderID).Error; err != nil {
			return err
		}
		previous = o.Status

		if in.Status != nil {
			next, err := parseOrderStatus(*in.Status)
			if err != nil {
				return err
			}
			if next != o.Status {
				if !canTransition(o.Status, next) {
					return ErrInvalidTransition
				}
				o.Status = next
			}
		}

		if in.PaymentStatus != nil {
			next := models.PaymentStatus(strings.ToLower(*in.PaymentStatus))
			switch next {
			case models.PaymentStatusPending, models.PaymentStatusCompleted,
				models.PaymentStatusPartial, models.PaymentStatusFailed:
				o.PaymentStatus = next
			default:
				return ErrInvalidStatus
			}
		}

		o.UpdatedAt = time.Now()
		return tx.Omit(clause.Associations).Save(&o).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &o, previous, nil
}

// PUT /orders/:id (admin)
func UpdateOrderHandler(db *gorm.DB, lg *zap.Logger, notifier *notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in UpdateOrderInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if in.Status == nil && in.PaymentStatus == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
			return
		}

		order, err := ApplyUpdate(db, lg, notifier, c.Param("id"), in)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTransition):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				lg.Error("update order", zap.String("order_id", c.Param("id")), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}
