package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
)

func TestCreateProjectRejectsIneligibleStudent(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.project.CreateProject(context.Background(), &CreateProjectInput{
		StudentID: "1111111111", Name: "Mallory", Title: "x",
	})
	assert.True(t, appErr.IsCode(err, appErr.CodeIneligible))

	_, _, err = env.project.CreateProject(context.Background(), &CreateProjectInput{
		StudentID: "12345678", Name: "Short", Title: "x",
	})
	assert.True(t, appErr.IsCode(err, appErr.CodeIneligible))

	all, err := env.projects.List(context.Background(), repository.ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateProjectUpsertsProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.createProject(t, adaID, "Ada Lovelace")
	assert.Equal(t, "Ada Lovelace", p.StudentName)
	assert.Equal(t, workflow.DefaultClassID, p.ClassID)
	assert.Equal(t, 1, p.Version)

	require.NoError(t, env.directory.SignOut(ctx, adaID))

	// a returning student keeps the stored profile
	_, user, err := env.project.CreateProject(ctx, &CreateProjectInput{StudentID: adaID, Name: "Someone Else", Title: "Second"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.True(t, user.IsOnline)
	assert.Equal(t, "https://api.dicebear.com/7.x/initials/svg?seed=Ada+Lovelace", user.Avatar)

	mine, err := env.project.ListProjects(ctx, repository.ProjectFilter{StudentID: adaID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestStageFlowThroughService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	env.enqueuer.On("EnqueueAnalysis", mock.Anything, mock.MatchedBy(func(r AnalysisRequest) bool {
		return r.ProjectID == p.ID && r.Stage == "EMPATHIZE" && r.Verdict == "APPROVED" && r.Feedback == "Solid interviews" && r.Score == 8
	})).Return(nil).Once()

	_, err := env.project.Submit(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	_, err = env.project.UpdateScore(ctx, p.ID, workflow.Empathize, 8)
	require.NoError(t, err)
	// feedback on a stage that is not judged yet schedules nothing
	_, err = env.project.UpdateFeedback(ctx, p.ID, workflow.Empathize, "Solid interviews")
	require.NoError(t, err)

	got, err := env.project.ApplyVerdict(ctx, p.ID, workflow.Empathize, true)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, got.Stages[workflow.Empathize].Status)
	assert.Equal(t, workflow.StatusInProgress, got.Stages[workflow.Define].Status)
	assert.Equal(t, 1.2, got.TotalScore)
	assert.Equal(t, 5, got.Version)

	env.enqueuer.AssertExpectations(t)
}

func TestSubmitFailureLeavesStoredProjectUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	_, err := env.project.Submit(ctx, p.ID, workflow.Define)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))

	stored, err := env.project.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Version, stored.Version)
	assert.Equal(t, workflow.StatusLocked, stored.Stages[workflow.Define].Status)

	_, err = env.project.Submit(ctx, "missing", workflow.Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestInactiveProjectRejectsStudentWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	_, err := env.project.SetActive(ctx, p.ID, false)
	require.NoError(t, err)
	_, err = env.project.AddOption(ctx, p.ID, workflow.Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))

	_, err = env.project.SetActive(ctx, p.ID, true)
	require.NoError(t, err)
	_, err = env.project.AddOption(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
}

func TestConcurrentWritersAreSerialized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.project.AddOption(ctx, p.ID, workflow.Empathize)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := env.project.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Stages[workflow.Empathize].Options, writers)
	assert.Equal(t, "Option 10", got.Stages[workflow.Empathize].Options[writers-1].Title)
	assert.Equal(t, 1+writers, got.Version)
}

func TestUploadAndRemoveAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	p, err := env.project.AddOption(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	optID := p.Stages[workflow.Empathize].Options[0].ID

	_, _, err = env.project.UploadAsset(ctx, p.ID, workflow.Empathize, optID, &UploadInput{Name: "empty.png", ContentType: "image/png"})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, _, err = env.project.UploadAsset(ctx, p.ID, workflow.Empathize, "nope", &UploadInput{Name: "a.png", ContentType: "image/png", Data: []byte("x")})
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	p, asset, err := env.project.UploadAsset(ctx, p.ID, workflow.Empathize, optID, &UploadInput{
		Name: "../persona.png", ContentType: "image/png", Data: []byte("pixels"),
	})
	require.NoError(t, err)
	assert.Equal(t, "persona.png", asset.Name)
	assert.Equal(t, workflow.AssetImage, asset.Kind)
	_, _, err = env.store.Open(ctx, asset.Ref)
	require.NoError(t, err)

	ref := AssetRef{ProjectID: p.ID, Stage: workflow.Empathize, OptionID: optID, AssetID: asset.ID}
	p, err = env.project.AddAnnotation(ctx, ref, workflow.AnnotationInput{X: 40, Y: 60, Text: "nice"})
	require.NoError(t, err)
	annID := p.Stages[workflow.Empathize].Options[0].Assets[0].Annotations[0].ID

	p, err = env.project.UpdateAnnotation(ctx, ref, annID, "very nice")
	require.NoError(t, err)
	assert.Equal(t, "very nice", p.Stages[workflow.Empathize].Options[0].Assets[0].Annotations[0].Text)

	p, err = env.project.ReplaceAnnotations(ctx, ref, []workflow.Annotation{{X: 1, Y: 2}, {X: 3, Y: 4}})
	require.NoError(t, err)
	assert.Len(t, p.Stages[workflow.Empathize].Options[0].Assets[0].Annotations, 2)

	p, err = env.project.RemoveAsset(ctx, p.ID, workflow.Empathize, optID, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Stages[workflow.Empathize].Options[0].Assets)

	_, err = env.project.RemoveAnnotation(ctx, ref, annID)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUpdateOptionAndChecklist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	p, err := env.project.AddOption(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	desc := "Interviewed 5 students"
	p, err = env.project.UpdateOption(ctx, p.ID, workflow.Empathize, p.Stages[workflow.Empathize].Options[0].ID, workflow.OptionPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, p.Stages[workflow.Empathize].Options[0].Description)

	p, err = env.project.ToggleChecklistItem(ctx, p.ID, workflow.Empathize, "2")
	require.NoError(t, err)
	assert.True(t, p.Stages[workflow.Empathize].Checklist[1].Completed)
}

func TestRejectThenReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	env.enqueuer.On("EnqueueAnalysis", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	_, err := env.project.Submit(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	_, err = env.project.UpdateFeedback(ctx, p.ID, workflow.Empathize, "Talk to more users")
	require.NoError(t, err)
	// a failing queue never fails the verdict
	p, err = env.project.ApplyVerdict(ctx, p.ID, workflow.Empathize, false)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, p.Stages[workflow.Empathize].Status)
	assert.Equal(t, workflow.StatusLocked, p.Stages[workflow.Define].Status)

	p, err = env.project.Reopen(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, p.Stages[workflow.Empathize].Status)
	env.enqueuer.AssertExpectations(t)
}

func TestRepeatedVerdictDoesNotRescheduleAnalysis(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createProject(t, adaID, "Ada")

	env.enqueuer.On("EnqueueAnalysis", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := env.project.Submit(ctx, p.ID, workflow.Empathize)
	require.NoError(t, err)
	_, err = env.project.UpdateFeedback(ctx, p.ID, workflow.Empathize, "Solid interviews")
	require.NoError(t, err)
	_, err = env.project.ApplyVerdict(ctx, p.ID, workflow.Empathize, true)
	require.NoError(t, err)

	// same outcome again: nothing new to summarize
	got, err := env.project.ApplyVerdict(ctx, p.ID, workflow.Empathize, true)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, got.Stages[workflow.Empathize].Status)

	env.enqueuer.AssertNumberOfCalls(t, "EnqueueAnalysis", 1)
}
