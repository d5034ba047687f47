package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/assistant"
	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/render"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// AnalysisRequest asks for a feedback summary of one judged stage.
type AnalysisRequest struct {
	ProjectID string  `json:"project_id"`
	Stage     string  `json:"stage"`
	Verdict   string  `json:"verdict"`
	Feedback  string  `json:"feedback"`
	Score     float64 `json:"score"`
}

// AnalysisEnqueuer schedules AnalysisRequests outside the request path.
type AnalysisEnqueuer interface {
	EnqueueAnalysis(ctx context.Context, req AnalysisRequest) error
}

// Suggestion is AI guidance for a stage, as raw Markdown and as sanitized HTML.
type Suggestion struct {
	Stage workflow.StageType `json:"stage"`
	Text  string             `json:"text"`
	HTML  string             `json:"html"`
}

// AnalysisService fronts the AI collaborator.
type AnalysisService interface {
	Suggest(ctx context.Context, projectID string, stage workflow.StageType) (*Suggestion, error)
	Analyze(ctx context.Context, req AnalysisRequest) (*models.FeedbackAnalysis, error)
	GetAnalysis(ctx context.Context, projectID string, stage workflow.StageType) (*models.FeedbackAnalysis, error)
}

type analysisService struct {
	projects repository.ProjectRepository
	memo     repository.AnalysisRepository
	ai       assistant.Assistant
}

func NewAnalysisService(projects repository.ProjectRepository, memo repository.AnalysisRepository, ai assistant.Assistant) AnalysisService {
	return &analysisService{projects: projects, memo: memo, ai: ai}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) Suggest(ctx context.Context, projectID string, stage workflow.StageType) (*Suggestion, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := p.Stage(stage); err != nil {
		return nil, err
	}
	logger.L().Info("stage suggestions requested", zap.String("project_id", projectID), zap.String("stage", string(stage)))
	text := s.ai.Suggest(ctx, stage, projectContext(p, stage))
	return &Suggestion{Stage: stage, Text: text, HTML: render.Markdown(text)}, nil
}

// projectContext describes the project to the model: its title and the
// options already proposed for the stage.
func projectContext(p *workflow.Project, stage workflow.StageType) string {
	var b strings.Builder
	b.WriteString(p.Title)
	if sd, ok := p.Stages[stage]; ok {
		for _, o := range sd.Options {
			b.WriteString("\n- ")
			b.WriteString(o.Title)
			if d := strings.TrimSpace(o.Description); d != "" {
				b.WriteString(": ")
				b.WriteString(d)
			}
		}
	}
	return b.String()
}

// Analyze produces the summary for req unless one for the same feedback text
// is already stored. Model failures yield an empty summary and are not retried.
func (s *analysisService) Analyze(ctx context.Context, req AnalysisRequest) (*models.FeedbackAnalysis, error) {
	existing, err := s.memo.Find(ctx, req.ProjectID, req.Stage, req.Verdict)
	switch {
	case err == nil && existing.Feedback == req.Feedback:
		logger.L().Debug("feedback analysis memoized", zap.String("project_id", req.ProjectID), zap.String("stage", req.Stage))
		return existing, nil
	case err != nil && !appErr.IsCode(err, appErr.CodeNotFound):
		return nil, err
	}

	summary := s.ai.SummarizeFeedback(ctx, req.Feedback, req.Score)
	a := &models.FeedbackAnalysis{
		ProjectID: req.ProjectID,
		Stage:     req.Stage,
		Verdict:   req.Verdict,
		Feedback:  req.Feedback,
		Score:     req.Score,
		Summary:   summary,
	}
	if err := s.memo.Upsert(ctx, a); err != nil {
		return nil, err
	}
	logger.L().Info("feedback analysis stored",
		zap.String("project_id", req.ProjectID),
		zap.String("stage", req.Stage),
		zap.String("verdict", req.Verdict),
		zap.Bool("empty", summary == ""))
	return a, nil
}

func (s *analysisService) GetAnalysis(ctx context.Context, projectID string, stage workflow.StageType) (*models.FeedbackAnalysis, error) {
	return s.memo.Latest(ctx, projectID, string(stage))
}

// InlineEnqueuer runs analyses in a background goroutine. It stands in for the
// queue when Redis is not configured.
type InlineEnqueuer struct {
	svc AnalysisService
}

func NewInlineEnqueuer(svc AnalysisService) *InlineEnqueuer {
	return &InlineEnqueuer{svc: svc}
}

func (e *InlineEnqueuer) EnqueueAnalysis(ctx context.Context, req AnalysisRequest) error {
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := e.svc.Analyze(bg, req); err != nil {
			logger.L().Warn("inline feedback analysis failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		}
	}()
	return nil
}

var _ AnalysisEnqueuer = (*InlineEnqueuer)(nil)
