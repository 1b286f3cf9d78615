package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"threadline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCommentRepository is a mock of the repository.CommentRepository interface
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListTopLevel(ctx context.Context, postID uint, sortCol string, desc bool) ([]*models.CommentNode, error) {
	args := m.Called(ctx, postID, sortCol, desc)
	return args.Get(0).([]*models.CommentNode), args.Error(1)
}

func (m *MockCommentRepository) ListReplies(ctx context.Context, commentID uint, limit, offset int) ([]*models.Comment, error) {
	args := m.Called(ctx, commentID, limit, offset)
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) CountReplies(ctx context.Context, commentID uint) (int64, error) {
	args := m.Called(ctx, commentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentRepository) Update(ctx context.Context, comment *models.Comment, ownerID uint) error {
	args := m.Called(ctx, comment, ownerID)
	return args.Error(0)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id, ownerID uint) ([]models.Image, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Image), args.Error(1)
}

// MockPostRepository is a mock of the repository.PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post, ownerID uint) error {
	args := m.Called(ctx, post, ownerID)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id, ownerID uint) ([]models.Image, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Image), args.Error(1)
}

// MockUserRepository is a mock of the repository.UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, id uint, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

// recordingReleaser captures released media references for assertions.
type recordingReleaser struct {
	mu       sync.Mutex
	released []models.Image
}

func (r *recordingReleaser) Release(_ context.Context, images []models.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, images...)
}

func newCommentService(t *testing.T) (*CommentService, *MockCommentRepository, *MockPostRepository, *MockUserRepository, *recordingReleaser) {
	t.Helper()
	commentRepo := new(MockCommentRepository)
	postRepo := new(MockPostRepository)
	userRepo := new(MockUserRepository)
	releaser := &recordingReleaser{}
	svc := NewCommentService(commentRepo, postRepo, userRepo, releaser)
	return svc, commentRepo, postRepo, userRepo, releaser
}

func TestCreateComment_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _, _, _ := newCommentService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
	}{
		{"empty text", ""},
		{"whitespace only", "   \n\t "},
		{"too long", strings.Repeat("a", 10001)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: 1, PostID: 1, Text: tt.text})
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestCreateComment_UpsertsIdentityAndTrims(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, userRepo, _ := newCommentService(t)
	ctx := context.Background()

	userRepo.On("Upsert", mock.Anything, uint(7), "alice").Return(nil)
	commentRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Comment) bool {
		return c.Text == "hello" && c.PostID == 3 && c.ParentCommentID == nil
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Comment).ID = 11
	})
	commentRepo.On("GetByID", mock.Anything, uint(11)).
		Return(&models.Comment{ID: 11, PostID: 3, UserID: 7, Text: "hello"}, nil)

	created, err := svc.CreateComment(ctx, CreateCommentInput{
		UserID: 7, Username: "alice", PostID: 3, Text: "  hello  ",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, created.ID)
	userRepo.AssertExpectations(t)
	commentRepo.AssertExpectations(t)
}

func TestReplyToComment_SetsParent(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, userRepo, _ := newCommentService(t)
	ctx := context.Background()

	userRepo.On("Upsert", mock.Anything, uint(7), "alice").Return(nil)
	commentRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Comment) bool {
		return c.ParentCommentID != nil && *c.ParentCommentID == 5 && c.PostID == 3
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Comment).ID = 12
	})
	parentID := uint(5)
	commentRepo.On("GetByID", mock.Anything, uint(12)).
		Return(&models.Comment{ID: 12, PostID: 3, ParentCommentID: &parentID}, nil)

	reply, err := svc.ReplyToComment(ctx, ReplyInput{
		UserID: 7, Username: "alice", PostID: 3, CommentID: 5, Text: "nested",
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)
	assert.EqualValues(t, 5, *reply.ParentCommentID)
}

func TestListTopLevel_SortWhitelist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		sortBy       string
		sortOrder    string
		expectedCol  string
		expectedDesc bool
	}{
		{"defaults", "createdAt", "asc", "created_at", false},
		{"updatedAt desc", "updatedAt", "desc", "updated_at", true},
		{"unknown column falls back", "userId; DROP TABLE", "desc", "created_at", true},
		{"unknown order is ascending", "createdAt", "banana", "created_at", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, commentRepo, postRepo, _, _ := newCommentService(t)

			postRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.Post{ID: 1}, nil)
			commentRepo.On("ListTopLevel", mock.Anything, uint(1), tt.expectedCol, tt.expectedDesc).
				Return([]*models.CommentNode{}, nil)

			_, err := svc.ListTopLevel(context.Background(), 1, tt.sortBy, tt.sortOrder)
			require.NoError(t, err)
			commentRepo.AssertExpectations(t)
		})
	}
}

func TestListTopLevel_MissingPost(t *testing.T) {
	t.Parallel()
	svc, _, postRepo, _, _ := newCommentService(t)

	postRepo.On("GetByID", mock.Anything, uint(9)).
		Return(nil, models.NewNotFoundError("Post not found"))

	_, err := svc.ListTopLevel(context.Background(), 9, "createdAt", "asc")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestExpandReplies_Coercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		page, pageSize   int
		expectedPage     int
		expectedPageSize int
		expectedOffset   int
	}{
		{"negative page", -3, 10, 1, 10, 0},
		{"zero pageSize", 1, 0, 1, 10, 0},
		{"oversized pageSize", 2, 500, 2, 100, 100},
		{"plain second page", 2, 2, 2, 2, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, commentRepo, _, _, _ := newCommentService(t)

			commentRepo.On("GetByID", mock.Anything, uint(5)).
				Return(&models.Comment{ID: 5, PostID: 1}, nil)
			commentRepo.On("CountReplies", mock.Anything, uint(5)).Return(int64(5), nil)
			commentRepo.On("ListReplies", mock.Anything, uint(5), tt.expectedPageSize, tt.expectedOffset).
				Return([]*models.Comment{}, nil)

			page, err := svc.ExpandReplies(context.Background(), 1, 5, tt.page, tt.pageSize)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPage, page.Page)
			assert.Equal(t, tt.expectedPageSize, page.PageSize)
			assert.EqualValues(t, 5, page.Total)
			commentRepo.AssertExpectations(t)
		})
	}
}

func TestExpandReplies_TotalPages(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	commentRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.Comment{ID: 5, PostID: 1}, nil)
	commentRepo.On("CountReplies", mock.Anything, uint(5)).Return(int64(5), nil)
	commentRepo.On("ListReplies", mock.Anything, uint(5), 2, 0).
		Return([]*models.Comment{{ID: 21}, {ID: 22}}, nil)

	page, err := svc.ExpandReplies(context.Background(), 1, 5, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
}

func TestExpandReplies_RejectsReplyTarget(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	parentID := uint(4)
	commentRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.Comment{ID: 5, PostID: 1, ParentCommentID: &parentID}, nil)

	_, err := svc.ExpandReplies(context.Background(), 1, 5, 1, 10)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestExpandReplies_RejectsPostMismatch(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	commentRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.Comment{ID: 5, PostID: 2}, nil)

	_, err := svc.ExpandReplies(context.Background(), 1, 5, 1, 10)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestEditComment_NonOwnerForbidden(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	commentRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.Comment{ID: 5, PostID: 1, UserID: 42, Text: "original"}, nil)

	_, err := svc.EditComment(context.Background(), UpdateCommentInput{
		UserID: 7, PostID: 1, CommentID: 5, Text: "hijacked",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	commentRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditComment_PartialUpdateKeepsText(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	stored := &models.Comment{ID: 5, PostID: 1, UserID: 7, Text: "original"}
	commentRepo.On("GetByID", mock.Anything, uint(5)).Return(stored, nil)
	commentRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Comment) bool {
		return c.Text == "original"
	}), uint(7)).Return(nil)

	_, err := svc.EditComment(context.Background(), UpdateCommentInput{
		UserID: 7, PostID: 1, CommentID: 5, Text: "",
	})
	require.NoError(t, err)
	commentRepo.AssertExpectations(t)
}

func TestEditComment_ImageReplacementReleasesOld(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, releaser := newCommentService(t)

	stored := &models.Comment{
		ID: 5, PostID: 1, UserID: 7, Text: "original",
		Image: models.Image{PublicID: "old-img", URL: "https://cdn/old"},
	}
	commentRepo.On("GetByID", mock.Anything, uint(5)).Return(stored, nil)
	commentRepo.On("Update", mock.Anything, mock.Anything, uint(7)).Return(nil)

	_, err := svc.EditComment(context.Background(), UpdateCommentInput{
		UserID: 7, PostID: 1, CommentID: 5,
		Image: models.Image{PublicID: "new-img", URL: "https://cdn/new"},
	})
	require.NoError(t, err)
	require.Len(t, releaser.released, 1)
	assert.Equal(t, "old-img", releaser.released[0].PublicID)
}

func TestEditReply_ParentageMismatch(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	otherParent := uint(99)
	commentRepo.On("GetByID", mock.Anything, uint(8)).
		Return(&models.Comment{ID: 8, PostID: 1, UserID: 7, ParentCommentID: &otherParent}, nil)

	_, err := svc.EditReply(context.Background(), UpdateReplyInput{
		UserID: 7, PostID: 1, CommentID: 5, ReplyID: 8, Text: "edit",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestDeleteComment_ReleasesCascadedMedia(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, releaser := newCommentService(t)

	commentRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.Comment{ID: 5, PostID: 1, UserID: 7}, nil)
	commentRepo.On("Delete", mock.Anything, uint(5), uint(7)).
		Return([]models.Image{
			{PublicID: "img-a"},
			{PublicID: "img-b"},
		}, nil)

	err := svc.DeleteComment(context.Background(), 7, 1, 5)
	require.NoError(t, err)
	assert.Len(t, releaser.released, 2)
}

func TestDeleteReply_WrongParent404(t *testing.T) {
	t.Parallel()
	svc, commentRepo, _, _, _ := newCommentService(t)

	otherParent := uint(99)
	commentRepo.On("GetByID", mock.Anything, uint(8)).
		Return(&models.Comment{ID: 8, PostID: 1, UserID: 7, ParentCommentID: &otherParent}, nil)

	err := svc.DeleteReply(context.Background(), 7, 1, 5, 8)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	commentRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
