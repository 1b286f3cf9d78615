package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a read-side projection of the external identity provider. Rows are
// created by seeding or by the lazy upsert on first authenticated write;
// credentials never live here.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
