package models

import "gorm.io/gorm"

// User represents a registered customer. Name and Phone are optional and are
// used to prefill the payment widget at checkout.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username   string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email      string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Name       string `json:"name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	Phone      string `json:"phone" gorm:"type:varchar(20)" validate:"omitempty,max=20"`
	Password   string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
