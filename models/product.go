package models

import "time"

type Product struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	// Subsection selects the price table: basic, 2set or 3set.
	Subsection string    `gorm:"type:VARCHAR(10);default:'basic'" json:"subsection"`
	Active     bool      `gorm:"default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
