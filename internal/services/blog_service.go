package services

import (
	"fmt"
	"strings"

	"greenbasket/internal/models"
	"greenbasket/internal/repositories"
)

// BlogService handles business logic for the store blog.
type BlogService struct {
	repo repositories.BlogRepository
}

// NewBlogService creates a new BlogService.
func NewBlogService(repo repositories.BlogRepository) *BlogService {
	return &BlogService{
		repo: repo,
	}
}

// GetPublishedPosts retrieves published posts for the public blog listing.
func (s *BlogService) GetPublishedPosts() ([]models.BlogPost, error) {
	return s.repo.GetAll(true)
}

// GetAllPosts retrieves every post including drafts, for the admin surface.
func (s *BlogService) GetAllPosts() ([]models.BlogPost, error) {
	return s.repo.GetAll(false)
}

// GetPostBySlug retrieves a single published post by its URL slug.
func (s *BlogService) GetPostBySlug(slug string) (*models.BlogPost, error) {
	post, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, fmt.Errorf("blog post with slug %s not found", slug)
	}
	return post, nil
}

// CreatePost creates a new post, deriving a slug from the title when none is
// supplied.
func (s *BlogService) CreatePost(post *models.BlogPost) error {
	if post.Slug == "" {
		post.Slug = slugify(post.Title)
	}
	if existing, err := s.repo.GetBySlug(post.Slug); err == nil && existing != nil {
		return fmt.Errorf("blog post with slug '%s' already exists", post.Slug)
	}
	return s.repo.Create(post)
}

// UpdatePost updates an existing post.
func (s *BlogService) UpdatePost(post *models.BlogPost) error {
	return s.repo.Update(post)
}

// DeletePost deletes a post by its ID.
func (s *BlogService) DeletePost(id string) error {
	return s.repo.Delete(id)
}

// slugify lowercases a title and replaces runs of non-alphanumerics with a
// single hyphen.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
