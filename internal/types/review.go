package types

import (
	"time"

	"github.com/google/uuid"
)

// Review is a user's rating (1-5) and optional text for a catalog book.
// BookID is the upstream catalog work id, not a local foreign key.
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_book;column:user_id" json:"user_id"`
	BookID    string    `gorm:"not null;uniqueIndex:idx_review_user_book;column:book_id" json:"book_id"`
	Rating    int       `gorm:"not null;column:rating" json:"rating"`
	Content   string    `gorm:"column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Review) TableName() string {
	return "review"
}
