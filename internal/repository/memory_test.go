package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
)

func newProject(studentID string, at time.Time) *workflow.Project {
	return workflow.NewProject(workflow.NewProjectInput{
		Title: "Commute", StudentID: studentID, StudentName: "Ada",
	}, at)
}

func TestMemoryProjectRepositoryOptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProjectRepository()
	p := newProject("1234567890", time.Now())
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, 1, p.Version)

	a, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	b, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, a.Submit(workflow.Empathize))
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, 2, a.Version)

	require.NoError(t, b.UpdateScore(workflow.Empathize, 9))
	err = repo.Update(ctx, b)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSubmitted, got.Stages[workflow.Empathize].Status)
	assert.Equal(t, 0.0, got.Stages[workflow.Empathize].Score)
}

func TestMemoryProjectRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProjectRepository()
	p := newProject("1234567890", time.Now())
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	got.Stages[workflow.Empathize].Status = workflow.StatusApproved

	again, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, again.Stages[workflow.Empathize].Status)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestMemoryProjectRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProjectRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newProject("1111111111", base)
	newer := newProject("2222222222", base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	all, err := repo.List(ctx, ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	mine, err := repo.List(ctx, ProjectFilter{StudentID: "1111111111"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, older.ID, mine[0].ID)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	u := &models.User{StudentID: "1234567890", Name: "Ada"}
	require.NoError(t, repo.Create(ctx, u))

	err := repo.Create(ctx, &models.User{StudentID: "1234567890", Name: "Dup"})
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))

	var got models.User
	require.NoError(t, repo.GetByStudentID(ctx, "1234567890", &got))
	assert.Equal(t, u.ID, got.ID)

	got.IsOnline = true
	require.NoError(t, repo.Update(ctx, &got))
	var again models.User
	require.NoError(t, repo.GetByID(ctx, u.ID, &again))
	assert.True(t, again.IsOnline)

	require.NoError(t, repo.Delete(ctx, u.ID.String()))
	assert.True(t, appErr.IsCode(repo.GetByStudentID(ctx, "1234567890", &got), appErr.CodeNotFound))
}

func TestMemoryAllowListRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAllowListRepository()

	n, err := repo.Add(ctx, []string{"2222222222", "1111111111"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.Add(ctx, []string{"1111111111", "short", " 333333333"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ok, err := repo.Contains(ctx, "2222222222")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1111111111", "2222222222"}, ids)
}

func TestMemoryAnalysisRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAnalysisRepository()

	_, err := repo.Latest(ctx, "p1", "EMPATHIZE")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	require.NoError(t, repo.Upsert(ctx, &models.FeedbackAnalysis{ProjectID: "p1", Stage: "EMPATHIZE", Verdict: "REJECTED", Summary: "first"}))
	time.Sleep(time.Millisecond)
	require.NoError(t, repo.Upsert(ctx, &models.FeedbackAnalysis{ProjectID: "p1", Stage: "EMPATHIZE", Verdict: "APPROVED", Summary: "second"}))

	latest, err := repo.Latest(ctx, "p1", "EMPATHIZE")
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Summary)

	got, err := repo.Find(ctx, "p1", "EMPATHIZE", "REJECTED")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Summary)
}
