package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/lock"
	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/storage"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// ProjectService drives the project aggregate. Every mutation returns the
// updated project.
type ProjectService interface {
	// Lifecycle
	CreateProject(ctx context.Context, input *CreateProjectInput) (*workflow.Project, *models.User, error)
	GetProject(ctx context.Context, projectID string) (*workflow.Project, error)
	ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]*workflow.Project, error)
	SetActive(ctx context.Context, projectID string, active bool) (*workflow.Project, error)

	// Stage state machine
	Submit(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error)
	Reopen(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error)
	ApplyVerdict(ctx context.Context, projectID string, stage workflow.StageType, approve bool) (*workflow.Project, error)
	UpdateScore(ctx context.Context, projectID string, stage workflow.StageType, score float64) (*workflow.Project, error)
	UpdateFeedback(ctx context.Context, projectID string, stage workflow.StageType, text string) (*workflow.Project, error)
	ToggleChecklistItem(ctx context.Context, projectID string, stage workflow.StageType, itemID string) (*workflow.Project, error)

	// Options and assets
	AddOption(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error)
	UpdateOption(ctx context.Context, projectID string, stage workflow.StageType, optionID string, patch workflow.OptionPatch) (*workflow.Project, error)
	UploadAsset(ctx context.Context, projectID string, stage workflow.StageType, optionID string, upload *UploadInput) (*workflow.Project, *workflow.FileAsset, error)
	RemoveAsset(ctx context.Context, projectID string, stage workflow.StageType, optionID, assetID string) (*workflow.Project, error)

	// Annotations
	AddAnnotation(ctx context.Context, ref AssetRef, in workflow.AnnotationInput) (*workflow.Project, error)
	UpdateAnnotation(ctx context.Context, ref AssetRef, annotationID, text string) (*workflow.Project, error)
	RemoveAnnotation(ctx context.Context, ref AssetRef, annotationID string) (*workflow.Project, error)
	ReplaceAnnotations(ctx context.Context, ref AssetRef, anns []workflow.Annotation) (*workflow.Project, error)
}

// CreateProjectInput is the student setup form.
type CreateProjectInput struct {
	StudentID string
	Name      string
	Email     string
	Title     string
	GroupName string
	ClassID   string
}

// UploadInput is one file received from a client.
type UploadInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// AssetRef addresses an asset inside a project.
type AssetRef struct {
	ProjectID string
	Stage     workflow.StageType
	OptionID  string
	AssetID   string
}

type projectService struct {
	*projectWriter
	directory      DirectoryService
	store          storage.Store
	enqueuer       AnalysisEnqueuer
	defaultClassID string
	maxUpload      int64
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	locker lock.Locker,
	directory DirectoryService,
	store storage.Store,
	enqueuer AnalysisEnqueuer,
	defaultClassID string,
	maxUpload int64,
) ProjectService {
	return &projectService{
		projectWriter:  &projectWriter{repo: projectRepo, locker: locker, now: func() time.Time { return time.Now().UTC() }},
		directory:      directory,
		store:          store,
		enqueuer:       enqueuer,
		defaultClassID: defaultClassID,
		maxUpload:      maxUpload,
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) CreateProject(ctx context.Context, input *CreateProjectInput) (*workflow.Project, *models.User, error) {
	studentID := strings.TrimSpace(input.StudentID)
	logger.L().Info("create project", zap.String("student_id", studentID))

	ok, err := s.directory.IsEligible(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		logger.L().Warn("ineligible student rejected", zap.String("student_id", studentID))
		return nil, nil, appErr.New(appErr.CodeIneligible, "student id is not on the allow-list").
			WithMeta("student_id", studentID)
	}

	user, err := s.directory.UpsertProfile(ctx, &ProfileInput{StudentID: studentID, Name: input.Name, Email: input.Email})
	if err != nil {
		return nil, nil, err
	}

	classID := input.ClassID
	if strings.TrimSpace(classID) == "" {
		classID = s.defaultClassID
	}
	p := workflow.NewProject(workflow.NewProjectInput{
		Title:       input.Title,
		StudentID:   studentID,
		StudentName: user.Name,
		GroupName:   input.GroupName,
		ClassID:     classID,
	}, s.now())
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, nil, err
	}
	logger.L().Info("project created", zap.String("project_id", p.ID), zap.String("student_id", studentID))
	return p, user, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID string) (*workflow.Project, error) {
	return s.repo.Get(ctx, projectID)
}

func (s *projectService) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]*workflow.Project, error) {
	return s.repo.List(ctx, filter)
}

func (s *projectService) SetActive(ctx context.Context, projectID string, active bool) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "set_active", func(p *workflow.Project) error {
		p.SetActive(active)
		return nil
	})
}

func (s *projectService) Submit(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "submit", func(p *workflow.Project) error {
		return p.Submit(stage)
	})
}

func (s *projectService) Reopen(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "reopen", func(p *workflow.Project) error {
		return p.Reopen(stage)
	})
}

func (s *projectService) ApplyVerdict(ctx context.Context, projectID string, stage workflow.StageType, approve bool) (*workflow.Project, error) {
	var ev workflow.VerdictEvent
	p, err := s.mutate(ctx, projectID, "verdict", func(p *workflow.Project) error {
		var err error
		ev, err = p.ApplyVerdict(stage, approve)
		return err
	})
	if err != nil {
		return nil, err
	}
	if ev.Unlocked != "" {
		logger.L().Info("stage unlocked", zap.String("project_id", projectID), zap.String("stage", string(ev.Unlocked)))
	}
	if ev.Finalized() {
		s.requestAnalysis(ctx, p, stage)
	}
	return p, nil
}

func (s *projectService) UpdateScore(ctx context.Context, projectID string, stage workflow.StageType, score float64) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "score", func(p *workflow.Project) error {
		return p.UpdateScore(stage, score)
	})
}

func (s *projectService) UpdateFeedback(ctx context.Context, projectID string, stage workflow.StageType, text string) (*workflow.Project, error) {
	p, err := s.mutate(ctx, projectID, "feedback", func(p *workflow.Project) error {
		return p.UpdateFeedback(stage, text)
	})
	if err != nil {
		return nil, err
	}
	s.requestAnalysis(ctx, p, stage)
	return p, nil
}

// requestAnalysis schedules the feedback summary once a judged stage carries
// feedback. Scheduling problems are logged and never fail the caller.
func (s *projectService) requestAnalysis(ctx context.Context, p *workflow.Project, stage workflow.StageType) {
	sd, ok := p.Stages[stage]
	if !ok || !sd.Status.IsVerdict() || strings.TrimSpace(sd.InstructorFeedback) == "" {
		return
	}
	if s.enqueuer == nil {
		logger.L().Warn("analysis enqueuer not configured, skipping", zap.String("project_id", p.ID))
		return
	}
	req := AnalysisRequest{
		ProjectID: p.ID,
		Stage:     string(stage),
		Verdict:   string(sd.Status),
		Feedback:  sd.InstructorFeedback,
		Score:     workflow.ClampScore(sd.Score),
	}
	if err := s.enqueuer.EnqueueAnalysis(ctx, req); err != nil {
		logger.L().Warn("enqueue feedback analysis failed", zap.String("project_id", p.ID), zap.String("stage", string(stage)), zap.Error(err))
	}
}

func (s *projectService) ToggleChecklistItem(ctx context.Context, projectID string, stage workflow.StageType, itemID string) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "toggle_checklist", func(p *workflow.Project) error {
		_, err := p.ToggleChecklistItem(stage, itemID)
		return err
	})
}

func (s *projectService) AddOption(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "add_option", func(p *workflow.Project) error {
		_, err := p.AddOption(stage)
		return err
	})
}

func (s *projectService) UpdateOption(ctx context.Context, projectID string, stage workflow.StageType, optionID string, patch workflow.OptionPatch) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "update_option", func(p *workflow.Project) error {
		_, err := p.UpdateOption(stage, optionID, patch)
		return err
	})
}

// UploadAsset stores the bytes first and then attaches the reference. Content
// written for a mutation that is later rejected stays in the store unreferenced.
func (s *projectService) UploadAsset(ctx context.Context, projectID string, stage workflow.StageType, optionID string, upload *UploadInput) (*workflow.Project, *workflow.FileAsset, error) {
	if len(upload.Data) == 0 {
		return nil, nil, appErr.New(appErr.CodeInvalid, "file is empty").WithMeta("field", "file")
	}
	if s.maxUpload > 0 && int64(len(upload.Data)) > s.maxUpload {
		return nil, nil, appErr.Newf(appErr.CodeInvalid, "file exceeds %d bytes", s.maxUpload).WithMeta("field", "file")
	}

	// fail fast before writing to the store
	current, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := current.Clone().AttachAsset(stage, optionID, workflow.AssetInput{Name: upload.Name, ContentType: upload.ContentType, Ref: "probe"}); err != nil {
		logMutationFailure(projectID, "upload_asset", err)
		return nil, nil, err
	}

	obj, err := s.store.Put(ctx, upload.Name, upload.ContentType, upload.Data)
	if err != nil {
		return nil, nil, err
	}
	var asset workflow.FileAsset
	p, err := s.mutate(ctx, projectID, "upload_asset", func(p *workflow.Project) error {
		var err error
		asset, err = p.AttachAsset(stage, optionID, workflow.AssetInput{
			Name:        obj.Name,
			ContentType: obj.ContentType,
			Size:        obj.Size,
			Ref:         obj.Ref,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return p, &asset, nil
}

func (s *projectService) RemoveAsset(ctx context.Context, projectID string, stage workflow.StageType, optionID, assetID string) (*workflow.Project, error) {
	return s.mutate(ctx, projectID, "remove_asset", func(p *workflow.Project) error {
		_, err := p.RemoveAsset(stage, optionID, assetID)
		return err
	})
}

func (s *projectService) AddAnnotation(ctx context.Context, ref AssetRef, in workflow.AnnotationInput) (*workflow.Project, error) {
	return s.mutate(ctx, ref.ProjectID, "add_annotation", func(p *workflow.Project) error {
		_, err := p.AddAnnotation(ref.Stage, ref.OptionID, ref.AssetID, in)
		return err
	})
}

func (s *projectService) UpdateAnnotation(ctx context.Context, ref AssetRef, annotationID, text string) (*workflow.Project, error) {
	return s.mutate(ctx, ref.ProjectID, "update_annotation", func(p *workflow.Project) error {
		_, err := p.UpdateAnnotationText(ref.Stage, ref.OptionID, ref.AssetID, annotationID, text)
		return err
	})
}

func (s *projectService) RemoveAnnotation(ctx context.Context, ref AssetRef, annotationID string) (*workflow.Project, error) {
	return s.mutate(ctx, ref.ProjectID, "remove_annotation", func(p *workflow.Project) error {
		return p.RemoveAnnotation(ref.Stage, ref.OptionID, ref.AssetID, annotationID)
	})
}

func (s *projectService) ReplaceAnnotations(ctx context.Context, ref AssetRef, anns []workflow.Annotation) (*workflow.Project, error) {
	return s.mutate(ctx, ref.ProjectID, "replace_annotations", func(p *workflow.Project) error {
		_, err := p.ReplaceAnnotations(ref.Stage, ref.OptionID, ref.AssetID, anns)
		return err
	})
}
