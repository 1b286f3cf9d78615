package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix     = "post:%d"
	PostsPageKey      = "posts:page:%d:%d"
	CommentsKeyPrefix = "post:%d:comments:%s:%s"
)

const (
	PostTTL     = 5 * time.Minute
	PostListTTL = 30 * time.Second
	CommentsTTL = 30 * time.Second
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostsKey(page, pageSize int) string {
	return fmt.Sprintf(PostsPageKey, page, pageSize)
}

func CommentsKey(postID uint, sortCol string, desc bool) string {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	return fmt.Sprintf(CommentsKeyPrefix, postID, sortCol, dir)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePost drops the post detail entry and every cached comment listing
// under it. Called on any mutation that touches the post's subtree.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	DelPattern(ctx, fmt.Sprintf("post:%d:comments:*", postID))
}

// InvalidatePostsList drops all cached post list pages.
func InvalidatePostsList(ctx context.Context) {
	DelPattern(ctx, "posts:page:*")
}
