package models

import "gorm.io/gorm"

// BlogPost represents an article on the store blog. Slug is the public URL
// handle; unpublished posts are only visible through the admin endpoints.
type BlogPost struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Slug       string `json:"slug" gorm:"uniqueIndex;type:varchar(150)" validate:"required,min=3,max=150"`
	Title      string `json:"title" validate:"required,min=3,max=200"`
	Excerpt    string `json:"excerpt" validate:"omitempty,max=500"`
	Content    string `json:"content" gorm:"type:text" validate:"required"`
	Published  bool   `json:"published"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
