package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"threadline/internal/database"
	"threadline/internal/media"
	"threadline/internal/models"
	"threadline/internal/repository"
	"threadline/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testStack is a full server wired to an in-memory database with a
// middleware that injects the given identity, bypassing token verification.
func newTestStack(t *testing.T, userID uint, username string) (*fiber.App, *Server, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	releaser := media.NewHTTPReleaser("")

	s := &Server{
		db:          db,
		userRepo:    userRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		releaser:    releaser,
	}
	s.commentService = service.NewCommentService(commentRepo, postRepo, userRepo, releaser)
	s.postService = service.NewPostService(postRepo, userRepo, s.commentService, releaser)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		if username != "" {
			c.Locals("username", username)
		}
		return c.Next()
	})

	api := app.Group("/api")
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", s.CreateComment)
	posts.Post("/:postId/comments/:commentId/reply", s.ReplyToComment)
	posts.Get("/:postId/comments/:commentId/expand", s.ExpandReplies)
	posts.Put("/:postId/comments/:commentId/replies/:replyId", s.UpdateReply)
	posts.Delete("/:postId/comments/:commentId/replies/:replyId", s.DeleteReply)
	posts.Put("/:postId/comments/:commentId", s.UpdateComment)
	posts.Delete("/:postId/comments/:commentId", s.DeleteComment)
	posts.Get("/:postId", s.GetPost)
	posts.Put("/:postId", s.UpdatePost)
	posts.Delete("/:postId", s.DeletePost)

	return app, s, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func seedHandlerThread(t *testing.T, db *gorm.DB, ownerID uint) (postID, commentID uint, replyIDs []uint) {
	t.Helper()

	user := models.User{ID: ownerID, Username: "owner"}
	require.NoError(t, db.Create(&user).Error)

	post := models.Post{Title: "P", Content: "body", UserID: ownerID}
	require.NoError(t, db.Create(&post).Error)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	comment := models.Comment{PostID: post.ID, UserID: ownerID, Text: "C1", CreatedAt: base}
	require.NoError(t, db.Create(&comment).Error)

	for i, text := range []string{"R1", "R2", "R3"} {
		reply := models.Comment{
			PostID: post.ID, UserID: ownerID, Text: text,
			ParentCommentID: &comment.ID,
			CreatedAt:       base.Add(time.Duration(i+1) * time.Minute),
		}
		require.NoError(t, db.Create(&reply).Error)
		replyIDs = append(replyIDs, reply.ID)
	}

	return post.ID, comment.ID, replyIDs
}

func TestGetComments_PreviewScenario(t *testing.T) {
	t.Parallel()
	app, _, db := newTestStack(t, 1, "owner")
	seedHandlerThread(t, db, 1)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/posts/1/comments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["success"])

	data, ok := payload["data"].([]any)
	require.True(t, ok, "data should be a list of comment nodes")
	require.Len(t, data, 1)

	node := data[0].(map[string]any)
	assert.EqualValues(t, 3, node["reply_count"])

	replies := node["replies"].([]any)
	require.Len(t, replies, 2, "preview holds at most two replies")
	assert.Equal(t, "R3", replies[0].(map[string]any)["text"])
	assert.Equal(t, "R2", replies[1].(map[string]any)["text"])
}

func TestExpandReplies_FullThreadAscending(t *testing.T) {
	t.Parallel()
	app, _, db := newTestStack(t, 1, "owner")
	seedHandlerThread(t, db, 1)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/posts/1/comments/1/expand?page=1&pageSize=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := payload["data"].(map[string]any)
	assert.EqualValues(t, 3, data["total"])
	assert.EqualValues(t, 1, data["totalPages"])

	replies := data["replies"].([]any)
	require.Len(t, replies, 3)
	texts := make([]string, len(replies))
	for i, r := range replies {
		texts[i] = r.(map[string]any)["text"].(string)
	}
	assert.Equal(t, []string{"R1", "R2", "R3"}, texts)
}

func TestReplyToReply_BadRequest(t *testing.T) {
	t.Parallel()
	app, _, db := newTestStack(t, 1, "owner")
	_, _, replyIDs := seedHandlerThread(t, db, 1)

	resp, payload := doJSON(t, app, http.MethodPost,
		"/api/posts/1/comments/"+itoa(replyIDs[0])+"/reply",
		map[string]string{"text": "too deep"})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, payload["success"])
	assert.EqualValues(t, http.StatusBadRequest, payload["statusCode"])
}

func TestCreateCommentFlow(t *testing.T) {
	t.Parallel()
	app, _, db := newTestStack(t, 1, "alice")

	_, createPost := doJSON(t, app, http.MethodPost, "/api/posts",
		map[string]string{"title": "Hello", "content": "World"})
	require.Equal(t, true, createPost["success"])

	resp, payload := doJSON(t, app, http.MethodPost, "/api/posts/1/comments",
		map[string]string{"text": "First!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := payload["data"].(map[string]any)
	assert.Equal(t, "First!", comment["text"])
	assert.Equal(t, "alice", comment["user"].(map[string]any)["username"])

	// identity projection was upserted from the token claims
	var user models.User
	require.NoError(t, db.First(&user, 1).Error)
	assert.Equal(t, "alice", user.Username)
}

func TestCommentOnMissingPost_NotFound(t *testing.T) {
	t.Parallel()
	app, _, _ := newTestStack(t, 1, "alice")

	resp, payload := doJSON(t, app, http.MethodPost, "/api/posts/999/comments",
		map[string]string{"text": "into the void"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, payload["success"])
}

func TestDeleteComment_NonOwnerForbidden(t *testing.T) {
	t.Parallel()
	app, _, db := newTestStack(t, 2, "intruder")
	_, commentID, _ := seedHandlerThread(t, db, 1)

	resp, payload := doJSON(t, app, http.MethodDelete, "/api/posts/1/comments/"+itoa(commentID), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, false, payload["success"])

	// stored thread unchanged
	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
}

func TestDeleteReply_RemovedFromBothStrategies(t *testing.T) {
	t.Parallel()
	app, _, db := newTestStack(t, 1, "owner")
	_, commentID, replyIDs := seedHandlerThread(t, db, 1)

	resp, _ := doJSON(t, app, http.MethodDelete,
		"/api/posts/1/comments/"+itoa(commentID)+"/replies/"+itoa(replyIDs[2]), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, listing := doJSON(t, app, http.MethodGet, "/api/posts/1/comments", nil)
	node := listing["data"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 2, node["reply_count"])
	replies := node["replies"].([]any)
	require.Len(t, replies, 2)
	assert.Equal(t, "R2", replies[0].(map[string]any)["text"])

	_, expanded := doJSON(t, app, http.MethodGet, "/api/posts/1/comments/1/expand", nil)
	assert.EqualValues(t, 2, expanded["data"].(map[string]any)["total"])
}

func TestInvalidRouteParam_BadRequest(t *testing.T) {
	t.Parallel()
	app, _, _ := newTestStack(t, 1, "owner")

	resp, payload := doJSON(t, app, http.MethodGet, "/api/posts/banana/comments", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid post ID", payload["message"])
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
