package models

import "time"

// AllowedStudent is one entry of the registration allow-list.
type AllowedStudent struct {
	StudentID string    `gorm:"type:varchar(10);primaryKey" json:"student_id" validate:"required,len=10"`
	CreatedAt time.Time `json:"created_at"`
}
