package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a node of the two-level discussion tree. A nil ParentCommentID
// marks a top-level comment; otherwise the record is a reply and
// ParentCommentID must point at a top-level comment of the same post.
type Comment struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID uint   `gorm:"not null;index" json:"post_id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user"`
	Text   string `gorm:"type:text;not null" json:"text"`
	Image  Image  `gorm:"embedded;embeddedPrefix:image_" json:"image"`

	ParentCommentID *uint `gorm:"index" json:"parent_comment_id"`

	// ReplyCount is not persisted; computed at query time
	ReplyCount int            `gorm:"->" json:"reply_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsTopLevel reports whether the comment is attached directly to its post.
func (c *Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil
}

// CommentNode is a top-level comment with its bounded reply preview: at most
// the two most recently created replies, newest first, authors resolved.
type CommentNode struct {
	Comment
	Replies []*Comment `json:"replies"`
}
