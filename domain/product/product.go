// Package product provides product value types and pure validation functions.
package product

import (
	"strings"
	"time"
)

// MaxNameLength bounds product names.
const MaxNameLength = 200

// Product is a catalogue item. Prices are integer minor units.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	PriceCents  int64     `json:"price_cents" db:"price_cents"`
	Stock       int64     `json:"stock" db:"stock"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// InStock returns true if at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Command carries the writable product fields. Nil fields are left unchanged on update.
type Command struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int64  `json:"stock"`
}

// ValidationResult represents the outcome of command validation.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// ValidateCreate validates a create command (pure function).
func ValidateCreate(cmd Command) ValidationResult {
	errors := make(map[string]string)

	if cmd.Name == nil || strings.TrimSpace(*cmd.Name) == "" {
		errors["name"] = "Name is required"
	}
	if cmd.PriceCents == nil {
		errors["price_cents"] = "Price is required"
	}
	validateFields(cmd, errors)

	return ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

// ValidateUpdate validates a partial update command (pure function).
func ValidateUpdate(cmd Command) ValidationResult {
	errors := make(map[string]string)

	if cmd.Name == nil && cmd.Description == nil && cmd.PriceCents == nil && cmd.Stock == nil {
		errors["body"] = "At least one field is required"
	}
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		errors["name"] = "Name is required"
	}
	validateFields(cmd, errors)

	return ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

func validateFields(cmd Command, errors map[string]string) {
	if cmd.Name != nil && len([]rune(strings.TrimSpace(*cmd.Name))) > MaxNameLength {
		errors["name"] = "Name must be at most 200 characters"
	}
	if cmd.Description != nil && len(*cmd.Description) > 2000 {
		errors["description"] = "Description must be at most 2000 characters"
	}
	if cmd.PriceCents != nil && *cmd.PriceCents < 0 {
		errors["price_cents"] = "Price must not be negative"
	}
	if cmd.Stock != nil && *cmd.Stock < 0 {
		errors["stock"] = "Stock must not be negative"
	}
}

// New builds a product owned by ownerID from a validated create command.
func New(cmd Command, ownerID int64, now time.Time) Product {
	return Apply(Product{OwnerID: ownerID, CreatedAt: now}, cmd, now)
}

// Apply returns p with the present command fields applied (pure function).
func Apply(p Product, cmd Command, now time.Time) Product {
	if cmd.Name != nil {
		p.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Description != nil {
		p.Description = *cmd.Description
	}
	if cmd.PriceCents != nil {
		p.PriceCents = *cmd.PriceCents
	}
	if cmd.Stock != nil {
		p.Stock = *cmd.Stock
	}
	p.UpdatedAt = now
	return p
}
