package server

import (
	"threadline/internal/models"
	"threadline/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postBody struct {
	Title   string       `json:"title"`
	Content string       `json:"content"`
	Image   models.Image `json:"image"`
}

// GetPosts returns a page of posts, newest first
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := parsePagination(c)

	page, err := s.postService.ListPosts(ctx, p.Page, p.PageSize)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "", page)
}

// GetPost returns a single post with its comment tree
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	detail, err := s.postService.GetPost(ctx, postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "", detail)
}

// CreatePost creates a post owned by the authenticated user
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, username := identity(c)

	var req postBody
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	created, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:   userID,
		Username: username,
		Title:    req.Title,
		Content:  req.Content,
		Image:    req.Image,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusCreated, "Post created", created)
}

// UpdatePost applies a partial update to the caller's own post
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, _ := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req postBody
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	updated, err := s.postService.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  userID,
		PostID:  postID,
		Title:   req.Title,
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Post updated", updated)
}

// DeletePost deletes the caller's own post and everything under it
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, _ := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(ctx, userID, postID); err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Post deleted", nil)
}
