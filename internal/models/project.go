package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/designwheel/engine/internal/workflow"
)

// Project is the persisted form of a workflow.Project. Stage state is kept as a
// single JSONB document; Version backs optimistic updates.
type Project struct {
	ID          string                                `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                                `gorm:"not null" json:"title" validate:"required"`
	StudentID   string                                `gorm:"type:varchar(10);index;not null" json:"student_id" validate:"required,len=10"`
	StudentName string                                `gorm:"not null" json:"student_name"`
	GroupName   string                                `json:"group_name"`
	ClassID     string                                `gorm:"type:varchar(64);index" json:"class_id"`
	IsActive    bool                                  `gorm:"not null;default:true;index" json:"is_active"`
	Stages      datatypes.JSONType[workflow.StageMap] `gorm:"type:jsonb" json:"stages"`
	TotalScore  float64                               `gorm:"not null;default:0" json:"total_score"`
	Version     int                                   `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time                             `json:"created_at"`
	UpdatedAt   time.Time                             `json:"updated_at"`
	DeletedAt   gorm.DeletedAt                        `gorm:"index" json:"-"`
}

// ProjectFromDomain converts an aggregate into its row.
func ProjectFromDomain(p *workflow.Project) *Project {
	return &Project{
		ID:          p.ID,
		Title:       p.Title,
		StudentID:   p.StudentID,
		StudentName: p.StudentName,
		GroupName:   p.GroupName,
		ClassID:     p.ClassID,
		IsActive:    p.IsActive,
		Stages:      datatypes.NewJSONType(p.Stages),
		TotalScore:  p.TotalScore,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToDomain rebuilds the aggregate. Stages missing from an older row are
// restored in their initial state so every stage is always present, and
// weights that no longer add up to 100 fall back to the registry defaults.
func (m *Project) ToDomain() *workflow.Project {
	stages := m.Stages.Data()
	if stages == nil {
		stages = workflow.StageMap{}
	}
	defaults := workflow.DefaultStages()
	for _, s := range workflow.Stages() {
		if sd, ok := stages[s]; !ok || sd == nil {
			stages[s] = defaults[s]
		}
	}
	total := m.TotalScore
	if !workflow.WeightsValid(stages) {
		for _, s := range workflow.Stages() {
			stages[s].Weight = defaults[s].Weight
		}
		total = workflow.TotalScore(stages)
	}
	p := &workflow.Project{
		ID:          m.ID,
		Title:       m.Title,
		StudentID:   m.StudentID,
		StudentName: m.StudentName,
		GroupName:   m.GroupName,
		ClassID:     m.ClassID,
		IsActive:    m.IsActive,
		Stages:      stages,
		TotalScore:  total,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	return p
}
