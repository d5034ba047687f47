package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/designwheel/engine/internal/models"
	appErr "github.com/designwheel/engine/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByStudentID(ctx context.Context, studentID string, dest *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

func (r *userRepository) GetByStudentID(ctx context.Context, studentID string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(dest).Error; err != nil {
		return notFoundOr(err, "user not found", "get user by student id failed")
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list users failed")
	}
	return out, nil
}
