package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
)

// ProjectFilter narrows List results. Zero value lists everything.
type ProjectFilter struct {
	StudentID  string
	ActiveOnly bool
}

// ProjectRepository persists project aggregates. Update is optimistic: it
// succeeds only when p.Version matches the stored version and then bumps it.
type ProjectRepository interface {
	Create(ctx context.Context, p *workflow.Project) error
	Get(ctx context.Context, id string) (*workflow.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*workflow.Project, error)
	Update(ctx context.Context, p *workflow.Project) error
}

type projectRepository struct {
	base BaseRepository[models.Project]
	db   *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{base: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *workflow.Project) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return r.base.Create(ctx, models.ProjectFromDomain(p))
}

func (r *projectRepository) Get(ctx context.Context, id string) (*workflow.Project, error) {
	var row models.Project
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "project not found", "get project failed")
	}
	return row.ToDomain(), nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]*workflow.Project, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{})
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = true")
	}
	var rows []models.Project
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	out := make([]*workflow.Project, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func (r *projectRepository) Update(ctx context.Context, p *workflow.Project) error {
	row := models.ProjectFromDomain(p)
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"title":        row.Title,
			"student_name": row.StudentName,
			"group_name":   row.GroupName,
			"is_active":    row.IsActive,
			"stages":       row.Stages,
			"total_score":  row.TotalScore,
			"version":      p.Version + 1,
			"updated_at":   p.UpdatedAt,
		})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project failed")
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "update project failed")
		}
		if n == 0 {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return staleVersion(p)
	}
	p.Version++
	return nil
}

func staleVersion(p *workflow.Project) error {
	return appErr.New(appErr.CodeConflict, "project was modified concurrently").
		WithMeta("project_id", p.ID).
		WithMeta("version", p.Version)
}
