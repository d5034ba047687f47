package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/services"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
	"github.com/designwheel/engine/pkg/utils"
)

// TypeFeedbackAnalysis summarizes instructor feedback on a judged stage.
const TypeFeedbackAnalysis = "feedback:analyze"

// FeedbackAnalysisPayload is the task payload.
type FeedbackAnalysisPayload = services.AnalysisRequest

// FeedbackAnalysisHandler runs feedback analysis tasks.
type FeedbackAnalysisHandler struct {
	analysis services.AnalysisService
}

func NewFeedbackAnalysisHandler(analysis services.AnalysisService) *FeedbackAnalysisHandler {
	return &FeedbackAnalysisHandler{analysis: analysis}
}

// Register binds the handler on mux.
func (h *FeedbackAnalysisHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFeedbackAnalysis, h.HandleFeedbackAnalysis)
}

func (h *FeedbackAnalysisHandler) HandleFeedbackAnalysis(ctx context.Context, t *asynq.Task) error {
	var p FeedbackAnalysisPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid feedback analysis payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := validatePayload(p); err != nil {
		logger.L().Error("invalid feedback analysis payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger.L().Info("handling feedback analysis",
		zap.String("project_id", p.ProjectID),
		zap.String("stage", p.Stage),
		zap.String("verdict", p.Verdict))

	if _, err := h.analysis.Analyze(ctx, p); err != nil {
		logger.L().Error("feedback analysis failed", zap.String("project_id", p.ProjectID), zap.Error(err))
		return err
	}
	return nil
}

func validatePayload(p FeedbackAnalysisPayload) error {
	if p.ProjectID == "" {
		return appErr.New(appErr.CodeInvalid, "project_id is required")
	}
	if !workflow.StageType(p.Stage).Valid() {
		return appErr.Newf(appErr.CodeInvalid, "unknown stage %q", p.Stage)
	}
	if !workflow.StageStatus(p.Verdict).IsVerdict() {
		return appErr.Newf(appErr.CodeInvalid, "verdict %q is not a decision", p.Verdict)
	}
	return nil
}

// AnalysisTaskID keys a task on project, stage, verdict and feedback text so
// that repeated requests for the same decision collapse into one task.
func AnalysisTaskID(req services.AnalysisRequest) string {
	return fmt.Sprintf("analysis:%s:%s:%s:%s",
		req.ProjectID, req.Stage, req.Verdict, utils.SumSHA256Hex([]byte(req.Feedback))[:16])
}

// NewFeedbackAnalysisTask builds the task for req.
func NewFeedbackAnalysisTask(req services.AnalysisRequest) (*asynq.Task, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode analysis payload failed")
	}
	return asynq.NewTask(TypeFeedbackAnalysis, b,
		asynq.TaskID(AnalysisTaskID(req)),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// Dispatcher enqueues analysis tasks on asynq.
type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) EnqueueAnalysis(ctx context.Context, req services.AnalysisRequest) error {
	task, err := NewFeedbackAnalysisTask(req)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.L().Debug("feedback analysis already queued", zap.String("project_id", req.ProjectID), zap.String("stage", req.Stage))
		return nil
	}
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue feedback analysis failed")
	}
	logger.L().Info("feedback analysis enqueued", zap.String("task_id", info.ID), zap.String("project_id", req.ProjectID))
	return nil
}

var _ services.AnalysisEnqueuer = (*Dispatcher)(nil)
