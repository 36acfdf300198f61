// Package notify writes per-recipient notification records for order events.
// Fan-out is best effort: a failed write for one recipient is logged and
// never rolls back the others.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/models"
)

type Notifier struct {
	db *gorm.DB
	lg *zap.Logger
}

func New(db *gorm.DB, lg *zap.Logger) *Notifier {
	return &Notifier{db: db, lg: lg}
}

// statusTemplates holds the customer-facing message per delivery status.
// Transitions into a status without a template produce no notification.
var statusTemplates = map[models.OrderStatus]struct {
	Title   string
	Message string
}{
	models.OrderStatusConfirmed:  {"Order confirmed", "Your order %s has been confirmed."},
	models.OrderStatusProcessing: {"Order in progress", "Your order %s is being prepared."},
	models.OrderStatusShipped:    {"Order shipped", "Your order %s has been shipped."},
	models.OrderStatusDelivered:  {"Order delivered", "Your order %s has been delivered. Enjoy!"},
	models.OrderStatusCancelled:  {"Order cancelled", "Your order %s has been cancelled."},
}

// Notify creates one notification row for one recipient.
func (n *Notifier) Notify(userID, typ, title, message, data string) error {
	row := models.Notification{
		ID:        "NTF-" + uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := n.db.Create(&row).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// BroadcastAdmins notifies every admin user, continuing past individual
// failures.
func (n *Notifier) BroadcastAdmins(typ, title, message, data string) {
	var admins []models.User
	if err := n.db.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		n.lg.Error("list admins for broadcast", zap.Error(err))
		return
	}
	for _, admin := range admins {
		if err := n.Notify(admin.ID, typ, title, message, data); err != nil {
			n.lg.Error("notify admin",
				zap.String("admin_id", admin.ID),
				zap.Error(err))
		}
	}
}

// OrderPlaced fans out the order-creation notifications: one to the ordering
// customer, one to every admin.
func (n *Notifier) OrderPlaced(order *models.Order) {
	data := orderData(order)

	if err := n.Notify(
		order.UserID,
		models.NotificationOrderPlaced,
		"Order placed",
		fmt.Sprintf("Your order %s has been placed. Total: %s", order.ID, order.Total.StringFixed(2)),
		data,
	); err != nil {
		n.lg.Error("notify customer", zap.String("order_id", order.ID), zap.Error(err))
	}

	n.BroadcastAdmins(
		models.NotificationNewOrder,
		"New order",
		fmt.Sprintf("Order %s placed for %s", order.ID, order.Total.StringFixed(2)),
		data,
	)
}

// OrderStatusChanged notifies the order's owner about a delivery-status
// transition. No-op when the target status has no template.
func (n *Notifier) OrderStatusChanged(order *models.Order) {
	tpl, ok := statusTemplates[order.Status]
	if !ok {
		return
	}
	if err := n.Notify(
		order.UserID,
		models.NotificationOrderStatus,
		tpl.Title,
		fmt.Sprintf(tpl.Message, order.ID),
		orderData(order),
	); err != nil {
		n.lg.Error("notify status change", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// HasTemplate reports whether a delivery status produces a customer
// notification.
func HasTemplate(status models.OrderStatus) bool {
	_, ok := statusTemplates[status]
	return ok
}

func orderData(order *models.Order) string {
	b, err := json.Marshal(map[string]string{
		"order_id": order.ID,
		"status":   string(order.Status),
		"total":    order.Total.StringFixed(2),
	})
	if err != nil {
		return ""
	}
	return string(b)
}
