package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records one settlement event. A card order has one payment for the
// full total; a COD order has exactly one payment for the 10% advance.
type Payment struct {
	ID                string          `gorm:"primaryKey" json:"id"`
	OrderID           string          `gorm:"not null;index" json:"order_id"`
	Amount            decimal.Decimal `gorm:"type:numeric" json:"amount"`
	PaymentMethod     string          `json:"payment_method"`
	ProviderPaymentID string          `gorm:"uniqueIndex" json:"provider_payment_id"`
	ProviderSignature string          `json:"provider_signature"`
	Status            PaymentStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}
