package handlers

import (
	"fmt"
	"log"
	"strings"

	"greenbasket/internal/models"
	"greenbasket/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// BlogHandler handles HTTP requests for the store blog.
type BlogHandler struct {
	service  *services.BlogService
	validate *validator.Validate
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(service *services.BlogService) *BlogHandler {
	return &BlogHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes registers the public blog read routes.
func (h *BlogHandler) RegisterPublicRoutes(router fiber.Router) {
	blogRoutes := router.Group("/blog")
	blogRoutes.Get("/", h.HandleGetPosts)
	blogRoutes.Get("/:slug", h.HandleGetPostBySlug)
}

// RegisterProtectedRoutes registers the blog admin routes.
func (h *BlogHandler) RegisterProtectedRoutes(router fiber.Router) {
	adminRoutes := router.Group("/blog-admin")
	adminRoutes.Get("/", h.HandleGetAllPosts)
	adminRoutes.Post("/", h.HandleCreatePost)
	adminRoutes.Put("/:id", h.HandleUpdatePost)
	adminRoutes.Delete("/:id", h.HandleDeletePost)
}

// HandleGetPosts lists published posts.
func (h *BlogHandler) HandleGetPosts(c *fiber.Ctx) error {
	posts, err := h.service.GetPublishedPosts()
	if err != nil {
		log.Printf("Error getting blog posts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve blog posts",
			"error":   err.Error(),
		})
	}
	return c.JSON(posts)
}

// HandleGetPostBySlug retrieves a published post by its slug.
func (h *BlogHandler) HandleGetPostBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	post, err := h.service.GetPostBySlug(slug)
	if err != nil {
		log.Printf("Error getting blog post %s: %v", slug, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Blog post '%s' not found", slug),
		})
	}
	return c.JSON(post)
}

// HandleGetAllPosts lists every post, drafts included.
func (h *BlogHandler) HandleGetAllPosts(c *fiber.Ctx) error {
	posts, err := h.service.GetAllPosts()
	if err != nil {
		log.Printf("Error getting all blog posts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve blog posts",
			"error":   err.Error(),
		})
	}
	return c.JSON(posts)
}

// HandleCreatePost creates a new blog post.
func (h *BlogHandler) HandleCreatePost(c *fiber.Ctx) error {
	var post models.BlogPost
	if err := c.BodyParser(&post); err != nil {
		log.Printf("Error parsing blog post body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	// Slug may be derived from the title, so validate after creation fills it.
	if post.Title == "" || post.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Title and content are required",
		})
	}

	if err := h.service.CreatePost(&post); err != nil {
		log.Printf("Error creating blog post: %v", err)
		if strings.Contains(err.Error(), "already exists") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Blog post creation failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create blog post",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// HandleUpdatePost updates an existing blog post.
func (h *BlogHandler) HandleUpdatePost(c *fiber.Ctx) error {
	var post models.BlogPost
	if err := c.BodyParser(&post); err != nil {
		log.Printf("Error parsing blog post update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	post.ID = c.Params("id")

	if err := h.validate.Struct(post); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	if err := h.service.UpdatePost(&post); err != nil {
		log.Printf("Error updating blog post %s: %v", post.ID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Blog post with ID %s not found", post.ID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update blog post",
			"error":   err.Error(),
		})
	}

	return c.JSON(post)
}

// HandleDeletePost deletes a blog post by its ID.
func (h *BlogHandler) HandleDeletePost(c *fiber.Ctx) error {
	postID := c.Params("id")
	if err := h.service.DeletePost(postID); err != nil {
		log.Printf("Error deleting blog post %s: %v", postID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Blog post with ID %s not found", postID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete blog post",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Blog post %s deleted successfully", postID),
	})
}
