package types

import (
	"time"

	"github.com/google/uuid"
)

type Playlist struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Playlist) TableName() string {
	return "playlist"
}

type PlaylistBook struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PlaylistID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_playlist_book;column:playlist_id" json:"playlist_id"`
	BookID     string    `gorm:"not null;uniqueIndex:idx_playlist_book;column:book_id" json:"book_id"`
	Position   int       `gorm:"not null;default:0;column:position" json:"position"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PlaylistBook) TableName() string {
	return "playlist_book"
}
