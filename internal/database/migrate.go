package database

import (
	"threadline/internal/models"

	"gorm.io/gorm"
)

// RegisteredModels lists every model AutoMigrate manages, in dependency order.
func RegisteredModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
	}
}

// Migrate applies the schema for all registered models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(RegisteredModels()...)
}
