package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	CartID    uint       `gorm:"primaryKey" json:"cart_id"`
	UserID    string     `gorm:"uniqueIndex" json:"user_id"` // one cart per user
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one cart line. Line identity is the compound key
// (cart, product, size, color, format); the unique index enforces that two
// lines with the same key can never coexist.
type CartItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CartID      uint   `gorm:"index;uniqueIndex:idx_cart_line" json:"cart_id"`
	ProductID   string `gorm:"uniqueIndex:idx_cart_line" json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `gorm:"uniqueIndex:idx_cart_line" json:"size"`
	Color       string `gorm:"uniqueIndex:idx_cart_line" json:"color"`
	Format      string `gorm:"uniqueIndex:idx_cart_line" json:"format"`
	FrameColor  string `json:"frame_color"`
	Subsection  string `json:"subsection"`
	// UnitPrice is resolved from the price tables when the line is added,
	// and re-derived again at checkout.
	UnitPrice decimal.Decimal `gorm:"type:numeric" json:"unit_price"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}
