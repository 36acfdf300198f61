package models

import "time"

// Notification kinds created by the system.
const (
	NotificationOrderPlaced = "order_placed"
	NotificationNewOrder    = "new_order"
	NotificationOrderStatus = "order_status"
)

// Notification is a per-recipient record; only the recipient may mark it
// read or delete it.
type Notification struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Data      string    `json:"data,omitempty"` // JSON-encoded payload, optional
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
