package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/designwheel/engine/internal/models"
	appErr "github.com/designwheel/engine/pkg/errors"
)

// AnalysisRepository memoizes feedback summaries per (project, stage, verdict).
type AnalysisRepository interface {
	Find(ctx context.Context, projectID, stage, verdict string) (*models.FeedbackAnalysis, error)
	Latest(ctx context.Context, projectID, stage string) (*models.FeedbackAnalysis, error)
	Upsert(ctx context.Context, a *models.FeedbackAnalysis) error
}

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Find(ctx context.Context, projectID, stage, verdict string) (*models.FeedbackAnalysis, error) {
	var a models.FeedbackAnalysis
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND stage = ? AND verdict = ?", projectID, stage, verdict).
		First(&a).Error
	if err != nil {
		return nil, notFoundOr(err, "analysis not found", "get analysis failed")
	}
	return &a, nil
}

func (r *analysisRepository) Latest(ctx context.Context, projectID, stage string) (*models.FeedbackAnalysis, error) {
	var a models.FeedbackAnalysis
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND stage = ?", projectID, stage).
		Order("updated_at DESC").
		First(&a).Error
	if err != nil {
		return nil, notFoundOr(err, "analysis not found", "get analysis failed")
	}
	return &a, nil
}

func (r *analysisRepository) Upsert(ctx context.Context, a *models.FeedbackAnalysis) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "stage"}, {Name: "verdict"}},
		DoUpdates: clause.AssignmentColumns([]string{"feedback", "score", "summary", "updated_at"}),
	}).Create(a).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "save analysis failed")
	}
	return nil
}
