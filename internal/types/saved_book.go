package types

import (
	"time"

	"github.com/google/uuid"
)

// SavedBook is one entry in a user's personal library.
type SavedBook struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_user_book;column:user_id" json:"user_id"`
	BookID    string    `gorm:"not null;uniqueIndex:idx_saved_user_book;column:book_id" json:"book_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (SavedBook) TableName() string {
	return "saved_book"
}
