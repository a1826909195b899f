package models

import "gorm.io/gorm"

// Product represents a product in the store catalog. Price is in whole
// rupees to match the cart and the checkout amount.
type Product struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Price       int    `json:"price" validate:"required,gt=0"`
	Image       string `json:"image" validate:"omitempty,url"`
	Category    string `json:"category" validate:"omitempty,max=50"`
	Stock       int    `json:"stock" validate:"gte=0"`
	gorm.Model         // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
