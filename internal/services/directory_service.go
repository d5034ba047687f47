package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/directory"
	"github.com/designwheel/engine/internal/lock"
	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
	"github.com/designwheel/engine/pkg/utils"
)

// DirectoryService owns the allow-list and student profiles.
type DirectoryService interface {
	IsEligible(ctx context.Context, studentID string) (bool, error)
	ImportAllowList(ctx context.Context, raw string) (*ImportResult, error)
	AllowList(ctx context.Context) ([]string, error)

	UpsertProfile(ctx context.Context, in *ProfileInput) (*models.User, error)
	GetProfile(ctx context.Context, studentID string) (*models.User, error)
	UpdateProfile(ctx context.Context, studentID string, patch *ProfilePatch) (*models.User, error)
	SignOut(ctx context.Context, studentID string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// ImportResult reports an allow-list ingestion.
type ImportResult struct {
	Parsed int `json:"parsed"`
	Added  int `json:"added"`
	Total  int `json:"total"`
}

type ProfileInput struct {
	StudentID string
	Name      string
	Email     string
	Avatar    string
}

type ProfilePatch struct {
	Name   *string
	Email  *string
	Avatar *string
}

type directoryService struct {
	users     repository.UserRepository
	allowList repository.AllowListRepository
	projects  repository.ProjectRepository
	writer    *projectWriter
	now       func() time.Time
}

func NewDirectoryService(users repository.UserRepository, allowList repository.AllowListRepository, projects repository.ProjectRepository, locker lock.Locker) DirectoryService {
	now := func() time.Time { return time.Now().UTC() }
	return &directoryService{
		users:     users,
		allowList: allowList,
		projects:  projects,
		writer:    &projectWriter{repo: projects, locker: locker, now: now},
		now:       now,
	}
}

var _ DirectoryService = (*directoryService)(nil)

func (s *directoryService) IsEligible(ctx context.Context, studentID string) (bool, error) {
	id := strings.TrimSpace(studentID)
	if !directory.ValidStudentID(id) {
		return false, nil
	}
	return s.allowList.Contains(ctx, id)
}

func (s *directoryService) ImportAllowList(ctx context.Context, raw string) (*ImportResult, error) {
	ids := directory.ParseStudentIDs(raw)
	added, err := s.allowList.Add(ctx, ids)
	if err != nil {
		return nil, err
	}
	all, err := s.allowList.List(ctx)
	if err != nil {
		return nil, err
	}
	logger.L().Info("allow-list imported", zap.Int("parsed", len(ids)), zap.Int("added", added), zap.Int("total", len(all)))
	return &ImportResult{Parsed: len(ids), Added: added, Total: len(all)}, nil
}

func (s *directoryService) AllowList(ctx context.Context) ([]string, error) {
	return s.allowList.List(ctx)
}

// UpsertProfile marks a returning student online and leaves the rest of their
// profile untouched; a new student gets a fresh profile.
func (s *directoryService) UpsertProfile(ctx context.Context, in *ProfileInput) (*models.User, error) {
	studentID := strings.TrimSpace(in.StudentID)
	now := s.now()

	var u models.User
	err := s.users.GetByStudentID(ctx, studentID, &u)
	switch {
	case err == nil:
		u.IsOnline = true
		u.LastActive = &now
		if err := s.users.Update(ctx, &u); err != nil {
			return nil, err
		}
		logger.L().Info("student signed in", zap.String("student_id", studentID))
		return &u, nil
	case !appErr.IsCode(err, appErr.CodeNotFound):
		return nil, err
	}

	name := utils.CleanString(in.Name)
	avatar := strings.TrimSpace(in.Avatar)
	if avatar == "" {
		avatar = models.DefaultAvatar(name)
	}
	u = models.User{
		StudentID:  studentID,
		Name:       name,
		Email:      utils.CleanString(in.Email, true),
		Avatar:     avatar,
		IsOnline:   true,
		LastActive: &now,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, err
	}
	logger.L().Info("student profile created", zap.String("student_id", studentID))
	return &u, nil
}

func (s *directoryService) GetProfile(ctx context.Context, studentID string) (*models.User, error) {
	var u models.User
	if err := s.users.GetByStudentID(ctx, studentID, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies patch; a changed name is pushed to the cached student
// name of every project the student owns.
func (s *directoryService) UpdateProfile(ctx context.Context, studentID string, patch *ProfilePatch) (*models.User, error) {
	var u models.User
	if err := s.users.GetByStudentID(ctx, studentID, &u); err != nil {
		return nil, err
	}
	renamed := false
	if patch.Name != nil {
		name := utils.CleanString(*patch.Name)
		if name == "" {
			return nil, appErr.New(appErr.CodeInvalid, "name must not be empty").WithMeta("field", "name")
		}
		renamed = name != u.Name
		u.Name = name
	}
	if patch.Email != nil {
		u.Email = utils.CleanString(*patch.Email, true)
	}
	if patch.Avatar != nil {
		u.Avatar = strings.TrimSpace(*patch.Avatar)
	}
	now := s.now()
	u.LastActive = &now
	if err := s.users.Update(ctx, &u); err != nil {
		return nil, err
	}
	if renamed {
		if err := s.refreshStudentName(ctx, studentID, u.Name); err != nil {
			return nil, err
		}
	}
	logger.L().Info("student profile updated", zap.String("student_id", studentID), zap.Bool("renamed", renamed))
	return &u, nil
}

func (s *directoryService) refreshStudentName(ctx context.Context, studentID, name string) error {
	owned, err := s.projects.List(ctx, repository.ProjectFilter{StudentID: studentID})
	if err != nil {
		return err
	}
	for _, p := range owned {
		_, err := s.writer.mutate(ctx, p.ID, "refresh_student_name", func(p *workflow.Project) error {
			p.RefreshStudentName(name)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *directoryService) SignOut(ctx context.Context, studentID string) error {
	var u models.User
	if err := s.users.GetByStudentID(ctx, studentID, &u); err != nil {
		return err
	}
	now := s.now()
	u.IsOnline = false
	u.LastActive = &now
	if err := s.users.Update(ctx, &u); err != nil {
		return err
	}
	logger.L().Info("student signed out", zap.String("student_id", studentID))
	return nil
}

func (s *directoryService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}
