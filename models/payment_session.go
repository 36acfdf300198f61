package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment session lifecycle. A session the widget never confirms before its
// TTL is abandoned, not failed; no order or payment row exists for it.
const (
	SessionCreated   = "created"
	SessionConsumed  = "consumed"
	SessionAbandoned = "abandoned"
)

// PaymentSession tracks one hosted-widget checkout attempt.
type PaymentSession struct {
	Ref       string          `gorm:"primaryKey" json:"ref"`
	UserID    string          `gorm:"index" json:"user_id"`
	Flow      string          `json:"flow"` // "full" or "cod"
	Amount    decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Status    string          `gorm:"type:VARCHAR(20);default:'created'" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}
