package repository

import (
	"context"
	"errors"

	"threadline/internal/cache"
	"threadline/internal/models"

	"gorm.io/gorm"
)

// previewCap is the fixed number of most-recent replies attached to each
// top-level comment in listing responses. Not a page size; expansion is the
// paginated path.
const previewCap = 2

// replyCountSubquery resolves each comment's live reply count in the same
// query that fetches the comment rows.
const replyCountSubquery = "comments.*, " +
	"(SELECT COUNT(*) FROM comments replies WHERE replies.parent_comment_id = comments.id " +
	"AND replies.deleted_at IS NULL) AS reply_count"

// CommentRepository defines the interface for comment operations. Writes that
// touch more than one record run inside a single transaction, and ownership
// is re-verified inside that transaction.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListTopLevel(ctx context.Context, postID uint, sortCol string, desc bool) ([]*models.CommentNode, error)
	ListReplies(ctx context.Context, commentID uint, limit, offset int) ([]*models.Comment, error)
	CountReplies(ctx context.Context, commentID uint) (int64, error)
	Update(ctx context.Context, comment *models.Comment, ownerID uint) error
	Delete(ctx context.Context, id, ownerID uint) ([]models.Image, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment after validating the tree shape inside the same
// transaction: the post must exist, and for a reply the parent must exist,
// belong to the same post, and itself be top-level (depth > 1 is rejected).
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, comment.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post not found")
			}
			return err
		}

		if comment.ParentCommentID != nil {
			var parent models.Comment
			if err := tx.Select("id", "post_id", "parent_comment_id").
				First(&parent, *comment.ParentCommentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewNotFoundError("Comment not found")
				}
				return err
			}
			if parent.PostID != comment.PostID {
				return models.NewNotFoundError("Comment does not belong to the specified post")
			}
			if !parent.IsTopLevel() {
				return models.NewInvalidHierarchyError("Replies to replies are not allowed")
			}
		}

		return tx.Create(comment).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, comment.PostID)
		cache.InvalidatePostsList(ctx)
	}
	return err
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Select(replyCountSubquery).
		Preload("User").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment not found")
		}
		return nil, err
	}
	return &comment, nil
}

// ListTopLevel returns the post's top-level comments in the requested order,
// each carrying its reply count and a preview of at most two most recently
// created replies (always newest first, independent of the outer sort).
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, sortCol string, desc bool) ([]*models.CommentNode, error) {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Select(replyCountSubquery).
		Preload("User").
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Order(sortCol + " " + dir + ", id " + dir).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	nodes := make([]*models.CommentNode, len(comments))
	parentIDs := make([]uint, 0, len(comments))
	for i, c := range comments {
		nodes[i] = &models.CommentNode{Comment: *c, Replies: []*models.Comment{}}
		if c.ReplyCount > 0 {
			parentIDs = append(parentIDs, c.ID)
		}
	}

	if len(parentIDs) > 0 {
		previews, err := r.loadReplyPreviews(ctx, parentIDs)
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			if replies, ok := previews[node.ID]; ok {
				node.Replies = replies
			}
		}
	}

	return nodes, nil
}

// loadReplyPreviews fetches the reply previews for many parents in one query
// (no N+1), then slices to the preview cap per parent in memory. Rows arrive
// newest first, so the first two per parent are the preview.
func (r *commentRepository) loadReplyPreviews(ctx context.Context, parentIDs []uint) (map[uint][]*models.Comment, error) {
	var replies []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_comment_id IN ?", parentIDs).
		Order("created_at DESC, id DESC").
		Find(&replies).Error
	if err != nil {
		return nil, err
	}

	previews := make(map[uint][]*models.Comment, len(parentIDs))
	for _, reply := range replies {
		parentID := *reply.ParentCommentID
		if len(previews[parentID]) < previewCap {
			previews[parentID] = append(previews[parentID], reply)
		}
	}
	return previews, nil
}

// ListReplies pages through a comment's replies oldest first; the explicit
// expansion path reads the thread in the order it was written.
func (r *commentRepository) ListReplies(ctx context.Context, commentID uint, limit, offset int) ([]*models.Comment, error) {
	var replies []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_comment_id = ?", commentID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&replies).Error
	return replies, err
}

func (r *commentRepository) CountReplies(ctx context.Context, commentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("parent_comment_id = ?", commentID).
		Count(&count).Error
	return count, err
}

// Update saves the comment after re-verifying ownership inside the same
// transaction.
func (r *commentRepository) Update(ctx context.Context, comment *models.Comment, ownerID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Comment
		if err := tx.Select("id", "user_id").First(&current, comment.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment not found")
			}
			return err
		}
		if current.UserID != ownerID {
			return models.NewForbiddenError("You can only edit your own comments")
		}
		return tx.Save(comment).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, comment.PostID)
	}
	return err
}

// Delete removes the comment and, when it is top-level, cascades to its
// replies in the same transaction so no reply is left dangling. Returns the
// media references released by the delete.
func (r *commentRepository) Delete(ctx context.Context, id, ownerID uint) ([]models.Image, error) {
	var (
		released []models.Image
		postID   uint
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment not found")
			}
			return err
		}
		if comment.UserID != ownerID {
			return models.NewForbiddenError("You can only delete your own comments")
		}
		postID = comment.PostID

		if !comment.Image.IsZero() {
			released = append(released, comment.Image)
		}

		if comment.IsTopLevel() {
			var replyImages []models.Image
			if err := tx.Model(&models.Comment{}).
				Select("image_public_id AS public_id, image_url AS url").
				Where("parent_comment_id = ? AND image_public_id <> ''", id).
				Scan(&replyImages).Error; err != nil {
				return err
			}
			released = append(released, replyImages...)

			if err := tx.Where("parent_comment_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidatePost(ctx, postID)
	cache.InvalidatePostsList(ctx)
	return released, nil
}
