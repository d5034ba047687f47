package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/designwheel/engine/internal/models"
	appErr "github.com/designwheel/engine/pkg/errors"
)

// AllowListRepository stores the set of student ids permitted to register.
type AllowListRepository interface {
	// Add unions ids into the list and returns how many were not present before.
	Add(ctx context.Context, ids []string) (int, error)
	Contains(ctx context.Context, studentID string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

type allowListRepository struct {
	db *gorm.DB
}

func NewAllowListRepository(db *gorm.DB) AllowListRepository {
	return &allowListRepository{db: db}
}

func (r *allowListRepository) Add(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	rows := make([]models.AllowedStudent, len(ids))
	for i, id := range ids {
		rows[i] = models.AllowedStudent{StudentID: id}
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "add allowed students failed")
	}
	return int(res.RowsAffected), nil
}

func (r *allowListRepository) Contains(ctx context.Context, studentID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.AllowedStudent{}).Where("student_id = ?", studentID).Count(&n).Error; err != nil {
		return false, appErr.Wrap(err, appErr.CodeInternal, "check allow-list failed")
	}
	return n > 0, nil
}

func (r *allowListRepository) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.AllowedStudent{}).Order("student_id ASC").Pluck("student_id", &ids).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list allow-list failed")
	}
	return ids, nil
}
