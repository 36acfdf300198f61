package models

import "time"

// Roles assigned by the external identity provider.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Role      string    `gorm:"type:VARCHAR(20);default:'user'" json:"role"`
	Address   Address   `gorm:"embedded" json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Address is embedded in User and (with a prefix) in Order as the
// shipping address captured at checkout.
type Address struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}
