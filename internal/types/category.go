package types

import (
	"time"

	"github.com/google/uuid"
)

// Category is a curated browse shelf mapped onto an upstream subject.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Subject   string    `gorm:"not null;column:subject" json:"subject"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Category) TableName() string {
	return "category"
}
