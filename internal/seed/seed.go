// Package seed provides helpers to create development and demo data. These
// helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"threadline/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options controls the shape and volume of generated data.
type Options struct {
	Users            int
	Posts            int
	CommentsPerPost  int
	RepliesPerThread int
	MaxDays          int
}

// DefaultOptions is enough content to exercise previews and expansion paging
// in a fresh environment.
var DefaultOptions = Options{
	Users:            10,
	Posts:            20,
	CommentsPerPost:  4,
	RepliesPerThread: 5,
	MaxDays:          60,
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rand *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// backdated spreads timestamps over the configured window so listings and
// previews have a realistic order to work with.
func (f *Factory) backdated() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 60
	}
	return time.Now().
		Add(-time.Duration(f.rand.Intn(maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rand.Intn(24*60)) * time.Minute)
}

func (f *Factory) fakeImage() models.Image {
	id := uuid.NewString()
	return models.Image{
		PublicID: id,
		URL:      fmt.Sprintf("https://picsum.photos/seed/%s/800/800", id),
	}
}

// CreateUser persists a sample user projection.
func (f *Factory) CreateUser() (*models.User, error) {
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a sample post owned by the given user.
func (f *Factory) CreatePost(user *models.User) (*models.Post, error) {
	post := &models.Post{
		Title:     gofakeit.Sentence(5),
		Content:   gofakeit.Paragraph(1, 3, 5, "\n"),
		UserID:    user.ID,
		CreatedAt: f.backdated(),
	}
	if f.rand.Intn(3) == 0 {
		post.Image = f.fakeImage()
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment. A nil parent yields a top-level comment,
// otherwise a reply under that parent.
func (f *Factory) CreateComment(user *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Text:      gofakeit.Sentence(12),
		CreatedAt: f.backdated(),
	}
	if parent != nil {
		parentID := parent.ID
		comment.ParentCommentID = &parentID
		// keep replies after their parent
		if comment.CreatedAt.Before(parent.CreatedAt) {
			comment.CreatedAt = parent.CreatedAt.Add(time.Duration(f.rand.Intn(600)+1) * time.Minute)
		}
	}
	if f.rand.Intn(6) == 0 {
		comment.Image = f.fakeImage()
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Run populates the database with users, posts, and threaded discussions.
func Run(db *gorm.DB, opts Options) error {
	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
		users = append(users, user)
	}

	pick := func() *models.User { return users[f.rand.Intn(len(users))] }

	for i := 0; i < opts.Posts; i++ {
		post, err := f.CreatePost(pick())
		if err != nil {
			return fmt.Errorf("seeding posts: %w", err)
		}

		comments := f.rand.Intn(opts.CommentsPerPost + 1)
		for j := 0; j < comments; j++ {
			comment, err := f.CreateComment(pick(), post, nil)
			if err != nil {
				return fmt.Errorf("seeding comments: %w", err)
			}

			replies := f.rand.Intn(opts.RepliesPerThread + 1)
			for k := 0; k < replies; k++ {
				if _, err := f.CreateComment(pick(), post, comment); err != nil {
					return fmt.Errorf("seeding replies: %w", err)
				}
			}
		}
	}

	log.Printf("Seeded %d users and %d posts with threaded comments", opts.Users, opts.Posts)
	return nil
}
