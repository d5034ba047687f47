package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/lock"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// projectWriter runs one mutation against a project while holding the
// project's writer lock. The aggregate returned by the repository is a private
// copy, so a failed mutation is simply dropped.
type projectWriter struct {
	repo   repository.ProjectRepository
	locker lock.Locker
	now    func() time.Time
}

func (w *projectWriter) mutate(ctx context.Context, projectID, op string, fn func(p *workflow.Project) error) (*workflow.Project, error) {
	release, err := w.locker.Acquire(ctx, lock.ProjectKey(projectID))
	if err != nil {
		logger.L().Warn("acquire project lock failed", zap.String("project_id", projectID), zap.String("op", op), zap.Error(err))
		return nil, err
	}
	defer release()

	p, err := w.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		logMutationFailure(projectID, op, err)
		return nil, err
	}
	p.Recompute()
	p.UpdatedAt = w.now()
	if err := w.repo.Update(ctx, p); err != nil {
		logger.L().Error("persist project failed", zap.String("project_id", projectID), zap.String("op", op), zap.Error(err))
		return nil, err
	}
	logger.L().Info("project updated",
		zap.String("project_id", projectID),
		zap.String("op", op),
		zap.Int("version", p.Version),
		zap.Float64("total_score", p.TotalScore))
	return p, nil
}

func logMutationFailure(projectID, op string, err error) {
	fields := []zap.Field{
		zap.String("project_id", projectID),
		zap.String("op", op),
		zap.String("code", string(appErr.CodeOf(err))),
		zap.Error(err),
	}
	switch appErr.CodeOf(err) {
	case appErr.CodeNotFound, appErr.CodeInvalidTransition, appErr.CodeInvalid:
		logger.L().Warn("project mutation rejected", fields...)
	default:
		logger.L().Error("project mutation failed", fields...)
	}
}
