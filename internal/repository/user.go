// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"threadline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository maintains the local projection of identities owned by the
// external identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Upsert(ctx context.Context, id uint, username string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// Upsert records the identity claims seen on an authenticated request. The
// identity provider is authoritative; a changed username overwrites the
// projection.
func (r *userRepository) Upsert(ctx context.Context, id uint, username string) error {
	user := models.User{ID: id, Username: username}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}).
		Create(&user).Error
}
