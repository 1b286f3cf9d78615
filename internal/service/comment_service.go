// Package service contains the business logic sitting between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"math"
	"strings"

	"threadline/internal/cache"
	"threadline/internal/media"
	"threadline/internal/models"
	"threadline/internal/repository"
)

const maxCommentLen = 10000

// Pagination coercion bounds shared by reply expansion and post listing.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	releaser    media.Releaser
}

type CreateCommentInput struct {
	UserID   uint
	Username string
	PostID   uint
	Text     string
	Image    models.Image
}

type ReplyInput struct {
	UserID    uint
	Username  string
	PostID    uint
	CommentID uint
	Text      string
	Image     models.Image
}

type UpdateCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	Text      string
	Image     models.Image
}

type UpdateReplyInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	ReplyID   uint
	Text      string
	Image     models.Image
}

// RepliesPage is the expansion result: one ascending page of a comment's
// replies plus enough totals to drive further paging.
type RepliesPage struct {
	Replies    []*models.Comment `json:"replies"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	releaser media.Releaser,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		releaser:    releaser,
	}
}

// coercePagination clamps page/pageSize so the offset can never go negative
// and a single request can never drain a whole thread.
func coercePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func validateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Text is required")
	}
	if len(text) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return text, nil
}

// CreateComment stores a top-level comment on the post. The author's identity
// projection is refreshed from the verified token claims before the insert so
// the returned comment carries a username.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	text, err := validateCommentText(in.Text)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Upsert(ctx, in.UserID, in.Username); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID: in.PostID,
		UserID: in.UserID,
		Text:   text,
		Image:  in.Image,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ReplyToComment stores a reply under a top-level comment of the post. Depth
// and post membership of the parent are enforced by the store inside the
// insert transaction.
func (s *CommentService) ReplyToComment(ctx context.Context, in ReplyInput) (*models.Comment, error) {
	text, err := validateCommentText(in.Text)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Upsert(ctx, in.UserID, in.Username); err != nil {
		return nil, err
	}

	parentID := in.CommentID
	reply := &models.Comment{
		PostID:          in.PostID,
		UserID:          in.UserID,
		Text:            text,
		Image:           in.Image,
		ParentCommentID: &parentID,
	}
	if err := s.commentRepo.Create(ctx, reply); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, reply.ID)
}

// ListTopLevel returns the post's top-level comments with bounded reply
// previews. sortBy is whitelisted; unknown values fall back to creation time,
// and anything other than "desc" sorts ascending.
func (s *CommentService) ListTopLevel(ctx context.Context, postID uint, sortBy, sortOrder string) ([]*models.CommentNode, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	sortCol := "created_at"
	if sortBy == "updatedAt" {
		sortCol = "updated_at"
	}
	desc := sortOrder == "desc"

	var nodes []*models.CommentNode
	err := cache.Aside(ctx, cache.CommentsKey(postID, sortCol, desc), &nodes, cache.CommentsTTL, func() error {
		var err error
		nodes, err = s.commentRepo.ListTopLevel(ctx, postID, sortCol, desc)
		return err
	})
	return nodes, err
}

// ExpandReplies pages through a comment's replies oldest first. The target
// must be a top-level comment of the named post; expanding a reply is a miss
// because a reply has no replies by construction.
func (s *CommentService) ExpandReplies(ctx context.Context, postID, commentID uint, page, pageSize int) (*RepliesPage, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment does not belong to the specified post")
	}
	if !comment.IsTopLevel() {
		return nil, models.NewNotFoundError("Comment not found")
	}

	page, pageSize = coercePagination(page, pageSize)

	total, err := s.commentRepo.CountReplies(ctx, commentID)
	if err != nil {
		return nil, err
	}

	replies, err := s.commentRepo.ListReplies(ctx, commentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &RepliesPage{
		Replies:    replies,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// loadTopLevel fetches the comment and verifies it is a top-level comment of
// the named post. Mismatches surface as not-found so the URL space leaks
// nothing about other posts' threads.
func (s *CommentService) loadTopLevel(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID || !comment.IsTopLevel() {
		return nil, models.NewNotFoundError("Comment not found")
	}
	return comment, nil
}

// loadReply fetches the reply and verifies its parentage against the path.
func (s *CommentService) loadReply(ctx context.Context, postID, commentID, replyID uint) (*models.Comment, error) {
	reply, err := s.commentRepo.GetByID(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if reply.PostID != postID || reply.ParentCommentID == nil || *reply.ParentCommentID != commentID {
		return nil, models.NewNotFoundError("Reply not found")
	}
	return reply, nil
}

// applyCommentEdit performs the partial update. Empty text and a zero image
// both mean "no change"; replacing the image releases the old reference.
func (s *CommentService) applyCommentEdit(ctx context.Context, comment *models.Comment, userID uint, text string, image models.Image) (*models.Comment, error) {
	var oldImage models.Image

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		if len(trimmed) > maxCommentLen {
			return nil, models.NewValidationError("Comment too long (max 10000 characters)")
		}
		comment.Text = trimmed
	}
	if !image.IsZero() && image.PublicID != comment.Image.PublicID {
		oldImage = comment.Image
		comment.Image = image
	}

	if err := s.commentRepo.Update(ctx, comment, userID); err != nil {
		return nil, err
	}

	if !oldImage.IsZero() {
		s.releaser.Release(ctx, []models.Image{oldImage})
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) EditComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.loadTopLevel(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	return s.applyCommentEdit(ctx, comment, in.UserID, in.Text, in.Image)
}

func (s *CommentService) EditReply(ctx context.Context, in UpdateReplyInput) (*models.Comment, error) {
	reply, err := s.loadReply(ctx, in.PostID, in.CommentID, in.ReplyID)
	if err != nil {
		return nil, err
	}
	if reply.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	return s.applyCommentEdit(ctx, reply, in.UserID, in.Text, in.Image)
}

// DeleteComment removes a top-level comment and its replies, then releases
// every media reference the cascade freed.
func (s *CommentService) DeleteComment(ctx context.Context, userID, postID, commentID uint) error {
	if _, err := s.loadTopLevel(ctx, postID, commentID); err != nil {
		return err
	}

	released, err := s.commentRepo.Delete(ctx, commentID, userID)
	if err != nil {
		return err
	}
	s.releaser.Release(ctx, released)
	return nil
}

// DeleteReply removes a single reply after verifying it sits under the named
// comment of the named post.
func (s *CommentService) DeleteReply(ctx context.Context, userID, postID, commentID, replyID uint) error {
	if _, err := s.loadReply(ctx, postID, commentID, replyID); err != nil {
		return err
	}

	released, err := s.commentRepo.Delete(ctx, replyID, userID)
	if err != nil {
		return err
	}
	s.releaser.Release(ctx, released)
	return nil
}
