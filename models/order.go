package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentStatus string

const (
	// Delivery lifecycle.
	OrderStatusPending    OrderStatus = "pending"    // placed, awaiting confirmation
	OrderStatusConfirmed  OrderStatus = "confirmed"  // confirmed by the shop
	OrderStatusProcessing OrderStatus = "processing" // being framed / packed
	OrderStatusShipped    OrderStatus = "shipped"    // out for delivery
	OrderStatusDelivered  OrderStatus = "delivered"  // customer received the item
	OrderStatusCancelled  OrderStatus = "cancelled"  // cancelled before shipping

	// Payment lifecycle. Partial marks a cash-on-delivery order where only
	// the advance has been captured; the balance is collected at delivery
	// and is never represented as a second payment record.
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCard = "card"
	PaymentMethodCOD  = "cod"
)

type Order struct {
	ID              string          `gorm:"primaryKey" json:"id"`
	UserID          string          `gorm:"not null;index" json:"user_id"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	Subtotal        decimal.Decimal `gorm:"type:numeric" json:"subtotal"`
	Shipping        decimal.Decimal `gorm:"type:numeric" json:"shipping"`
	Total           decimal.Decimal `gorm:"type:numeric" json:"total"`
	PaymentMethod   string          `json:"payment_method"`
	// ProviderPaymentID is the external widget's payment reference. The
	// unique index is the replay guard: a second order for the same
	// confirmation can never be inserted.
	ProviderPaymentID string        `gorm:"uniqueIndex" json:"payment_id"`
	PaymentSignature  string        `json:"payment_signature"`
	Status            OrderStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus     PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OrderItem is a frozen copy of a cart line with the resolved unit price
// and captured product name.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     string          `gorm:"index" json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Format      string          `json:"format"`
	FrameColor  string          `json:"frame_color"`
	Subsection  string          `json:"subsection"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric" json:"unit_price"`
	Quantity    int             `json:"quantity"`
}
