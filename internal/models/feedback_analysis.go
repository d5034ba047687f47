package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackAnalysis memoizes the AI summary produced once per project, stage and verdict.
type FeedbackAnalysis struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID string    `gorm:"type:uuid;not null;uniqueIndex:idx_analysis_key" json:"project_id" validate:"required"`
	Stage     string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_analysis_key" json:"stage" validate:"required"`
	Verdict   string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_analysis_key" json:"verdict" validate:"required,oneof=APPROVED REJECTED"`
	Feedback  string    `gorm:"type:text" json:"feedback"`
	Score     float64   `json:"score"`
	Summary   string    `gorm:"type:text" json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
