package repositories

import "greenbasket/internal/models"

// BlogRepository defines the interface for blog post data access.
type BlogRepository interface {
	GetAll(publishedOnly bool) ([]models.BlogPost, error)
	GetBySlug(slug string) (*models.BlogPost, error)
	GetByID(id string) (*models.BlogPost, error)
	Create(post *models.BlogPost) error
	Update(post *models.BlogPost) error
	Delete(id string) error
}
