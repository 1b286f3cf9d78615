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

const maxTitleLen = 300

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	comments *CommentService
	releaser media.Releaser
}

type CreatePostInput struct {
	UserID   uint
	Username string
	Title    string
	Content  string
	Image    models.Image
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
	Image   models.Image
}

// PostsPage is the listing result with the totals the client needs to page.
type PostsPage struct {
	Posts      []*models.Post `json:"posts"`
	TotalPosts int64          `json:"totalPosts"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// PostDetail is the single-post read: the post plus its full top-level
// comment list with bounded reply previews.
type PostDetail struct {
	Post     *models.Post          `json:"post"`
	Comments []*models.CommentNode `json:"comments"`
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	comments *CommentService,
	releaser media.Releaser,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		comments: comments,
		releaser: releaser,
	}
}

// ListPosts returns one newest-first page of posts. The first page is the hot
// path and is served cache-aside with a short TTL.
func (s *PostService) ListPosts(ctx context.Context, page, pageSize int) (*PostsPage, error) {
	page, pageSize = coercePagination(page, pageSize)

	var result PostsPage
	load := func() error {
		posts, err := s.postRepo.List(ctx, pageSize, (page-1)*pageSize)
		if err != nil {
			return err
		}
		total, err := s.postRepo.Count(ctx)
		if err != nil {
			return err
		}
		result = PostsPage{
			Posts:      posts,
			TotalPosts: total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		}
		return nil
	}

	if page == 1 {
		if err := cache.Aside(ctx, cache.PostsKey(page, pageSize), &result, cache.PostListTTL, load); err != nil {
			return nil, err
		}
		return &result, nil
	}

	if err := load(); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPost returns the post detail together with its comment tree.
func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.comments.commentRepo.ListTopLevel(ctx, id, "created_at", false)
	if err != nil {
		return nil, err
	}

	return &PostDetail{Post: post, Comments: nodes}, nil
}

func validatePostFields(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return "", "", models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return "", "", models.NewValidationError("Title too long (max 300 characters)")
	}
	if content == "" {
		return "", "", models.NewValidationError("Content is required")
	}
	return title, content, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title, content, err := validatePostFields(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Upsert(ctx, in.UserID, in.Username); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:   title,
		Content: content,
		UserID:  in.UserID,
		Image:   in.Image,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID)
}

// UpdatePost applies a partial, owner-only edit. Empty fields are left
// untouched; a new image releases the replaced reference.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	var oldImage models.Image
	if title := strings.TrimSpace(in.Title); title != "" {
		if len(title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		post.Title = title
	}
	if content := strings.TrimSpace(in.Content); content != "" {
		post.Content = content
	}
	if !in.Image.IsZero() && in.Image.PublicID != post.Image.PublicID {
		oldImage = post.Image
		post.Image = in.Image
	}

	if err := s.postRepo.Update(ctx, post, in.UserID); err != nil {
		return nil, err
	}

	if !oldImage.IsZero() {
		s.releaser.Release(ctx, []models.Image{oldImage})
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes the post and everything under it, then releases the
// media references freed by the cascade.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	released, err := s.postRepo.Delete(ctx, postID, userID)
	if err != nil {
		return err
	}
	s.releaser.Release(ctx, released)
	return nil
}
