package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/designwheel/engine/internal/lock"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/storage"
	"github.com/designwheel/engine/internal/workflow"
	"github.com/designwheel/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueAnalysis(ctx context.Context, req AnalysisRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type mockAssistant struct {
	mock.Mock
}

func (m *mockAssistant) Suggest(ctx context.Context, stage workflow.StageType, projectContext string) string {
	args := m.Called(ctx, stage, projectContext)
	return args.String(0)
}

func (m *mockAssistant) SummarizeFeedback(ctx context.Context, feedback string, score float64) string {
	args := m.Called(ctx, feedback, score)
	return args.String(0)
}

const (
	adaID   = "1234567890"
	graceID = "0987654321"
)

type testEnv struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	allowList repository.AllowListRepository
	memo      repository.AnalysisRepository
	store     *storage.MemoryStore
	enqueuer  *mockEnqueuer

	directory DirectoryService
	project   ProjectService
	export    ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		projects:  repository.NewMemoryProjectRepository(),
		users:     repository.NewMemoryUserRepository(),
		allowList: repository.NewMemoryAllowListRepository(),
		memo:      repository.NewMemoryAnalysisRepository(),
		store:     storage.NewMemoryStore("/api/v1/assets/"),
		enqueuer:  new(mockEnqueuer),
	}
	locker := lock.NewLocalLocker()
	env.directory = NewDirectoryService(env.users, env.allowList, env.projects, locker)
	env.project = NewProjectService(env.projects, locker, env.directory, env.store, env.enqueuer, workflow.DefaultClassID, 1<<20)
	env.export = NewExportService(env.users, env.allowList, env.projects)

	_, err := env.allowList.Add(context.Background(), []string{adaID, graceID})
	require.NoError(t, err)
	return env
}

func (e *testEnv) createProject(t *testing.T, studentID, name string) *workflow.Project {
	t.Helper()
	p, _, err := e.project.CreateProject(context.Background(), &CreateProjectInput{
		StudentID: studentID,
		Name:      name,
		Email:     "student@uni.edu",
		Title:     "Campus Food Waste",
		GroupName: "Team Kale",
	})
	require.NoError(t, err)
	return p
}
