package models

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvatarBaseURL renders initials avatars for profiles created without one.
const AvatarBaseURL = "https://api.dicebear.com/7.x/initials/svg?seed="

// User is a student profile keyed by the student identifier.
type User struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StudentID  string         `gorm:"type:varchar(10);uniqueIndex;not null" json:"student_id" validate:"required,len=10"`
	Name       string         `gorm:"not null" json:"name" validate:"required"`
	Email      string         `gorm:"index" json:"email" validate:"omitempty,email"`
	Avatar     string         `json:"avatar"`
	IsOnline   bool           `gorm:"not null;default:false" json:"is_online"`
	LastActive *time.Time     `json:"last_active,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// DefaultAvatar returns the initials avatar URL for name.
func DefaultAvatar(name string) string {
	return AvatarBaseURL + url.QueryEscape(name)
}
