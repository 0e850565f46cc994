package domain

import "time"

// Role values carried in customers and access tokens.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Customer represents a registered user of the ordering app.
type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary returns the contact fields shown to staff.
func (c Customer) Summary() *CustomerSummary {
	return &CustomerSummary{Name: c.Name, Email: c.Email, Phone: c.Phone}
}
