package server

import (
	"threadline/internal/models"
	"threadline/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentBody struct {
	Text  string       `json:"text"`
	Image models.Image `json:"image"`
}

// GetComments returns a post's top-level comments with bounded reply previews
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	nodes, err := s.commentService.ListTopLevel(ctx, postID,
		c.Query("sortBy", "createdAt"), c.Query("sortOrder", "asc"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "", nodes)
}

// CreateComment creates a top-level comment on a post
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, username := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req commentBody
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	created, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:   userID,
		Username: username,
		PostID:   postID,
		Text:     req.Text,
		Image:    req.Image,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusCreated, "Comment created", created)
}

// ReplyToComment creates a reply under a top-level comment
func (s *Server) ReplyToComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, username := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req commentBody
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	created, err := s.commentService.ReplyToComment(ctx, service.ReplyInput{
		UserID:    userID,
		Username:  username,
		PostID:    postID,
		CommentID: commentID,
		Text:      req.Text,
		Image:     req.Image,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusCreated, "Reply created", created)
}

// ExpandReplies returns one ascending page of a comment's replies
func (s *Server) ExpandReplies(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	p := parsePagination(c)
	page, err := s.commentService.ExpandReplies(ctx, postID, commentID, p.Page, p.PageSize)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "", page)
}

// UpdateComment applies a partial edit to the caller's own comment
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, _ := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req commentBody
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	updated, err := s.commentService.EditComment(ctx, service.UpdateCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
		Text:      req.Text,
		Image:     req.Image,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Comment updated", updated)
}

// DeleteComment deletes the caller's own comment and its replies
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, _ := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(ctx, userID, postID, commentID); err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Comment deleted", nil)
}

// UpdateReply applies a partial edit to the caller's own reply
func (s *Server) UpdateReply(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, _ := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	replyID, err := s.parseID(c, "replyId")
	if err != nil {
		return nil
	}

	var req commentBody
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	updated, err := s.commentService.EditReply(ctx, service.UpdateReplyInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
		ReplyID:   replyID,
		Text:      req.Text,
		Image:     req.Image,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Reply updated", updated)
}

// DeleteReply deletes the caller's own reply
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, _ := identity(c)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	replyID, err := s.parseID(c, "replyId")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteReply(ctx, userID, postID, commentID, replyID); err != nil {
		return models.RespondWithError(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, "Reply deleted", nil)
}
