package workflow

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/designwheel/engine/pkg/errors"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sequentialIDs(t *testing.T) {
	t.Helper()
	orig := NewID
	n := 0
	NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { NewID = orig })
}

func newTestProject(t *testing.T) *Project {
	t.Helper()
	return NewProject(NewProjectInput{
		Title:       "Campus Food Waste",
		StudentID:   "1234567890",
		StudentName: "Ada Lovelace",
		GroupName:   "Team Kale",
	}, testNow)
}

func approve(t *testing.T, p *Project, s StageType) VerdictEvent {
	t.Helper()
	require.NoError(t, p.Submit(s))
	ev, err := p.ApplyVerdict(s, true)
	require.NoError(t, err)
	return ev
}

func TestStageRegistry(t *testing.T) {
	assert.Equal(t, []StageType{Empathize, Define, Ideate, Prototype, Test, Implement}, Stages())

	next, ok := Empathize.Next()
	assert.True(t, ok)
	assert.Equal(t, Define, next)

	_, ok = Implement.Next()
	assert.False(t, ok)

	s, err := ParseStage(" ideate ")
	require.NoError(t, err)
	assert.Equal(t, Ideate, s)

	_, err = ParseStage("REFLECT")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	var total float64
	for _, info := range Registry() {
		total += info.DefaultWeight
	}
	assert.Equal(t, 100.0, total)
}

func TestNewProjectInitialState(t *testing.T) {
	p := newTestProject(t)

	assert.True(t, p.IsActive)
	assert.Equal(t, DefaultClassID, p.ClassID)
	assert.Equal(t, 0.0, p.TotalScore)
	assert.True(t, WeightsValid(p.Stages))
	require.Len(t, p.Stages, 6)

	for _, s := range Stages() {
		sd, err := p.Stage(s)
		require.NoError(t, err)
		if s == Empathize {
			assert.Equal(t, StatusInProgress, sd.Status)
		} else {
			assert.Equal(t, StatusLocked, sd.Status, s)
		}
		assert.Empty(t, sd.Options)
		require.Len(t, sd.Checklist, 2)
		assert.Equal(t, "Requirement 1 met", sd.Checklist[0].Text)
	}
}

func TestSubmitTransitions(t *testing.T) {
	p := newTestProject(t)

	require.NoError(t, p.Submit(Empathize))
	assert.Equal(t, StatusSubmitted, p.Stages[Empathize].Status)

	// double submit is rejected and leaves the stage as it was
	err := p.Submit(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	assert.Equal(t, StatusSubmitted, p.Stages[Empathize].Status)

	err = p.Submit(Define)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	assert.Equal(t, StatusLocked, p.Stages[Define].Status)

	// judged stages cannot be submitted again
	_, err = p.ApplyVerdict(Empathize, true)
	require.NoError(t, err)
	err = p.Submit(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	assert.Equal(t, StatusApproved, p.Stages[Empathize].Status)

	require.NoError(t, p.Submit(Define))
	_, err = p.ApplyVerdict(Define, false)
	require.NoError(t, err)
	err = p.Submit(Define)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	assert.Equal(t, StatusRejected, p.Stages[Define].Status)
}

func TestApproveUnlocksNextStage(t *testing.T) {
	p := newTestProject(t)

	ev := approve(t, p, Empathize)
	assert.Equal(t, StatusApproved, ev.Status)
	assert.Equal(t, Define, ev.Unlocked)
	assert.True(t, ev.Finalized())
	assert.Equal(t, StatusInProgress, p.Stages[Define].Status)
	assert.Equal(t, StatusLocked, p.Stages[Ideate].Status)
}

func TestApproveDoesNotDowngradeNextStage(t *testing.T) {
	p := newTestProject(t)
	approve(t, p, Empathize)
	require.NoError(t, p.Submit(Define))

	// re-approving Empathize must not pull Define back to IN_PROGRESS
	ev, err := p.ApplyVerdict(Empathize, true)
	require.NoError(t, err)
	assert.Empty(t, ev.Unlocked)
	assert.False(t, ev.Finalized())
	assert.Equal(t, StatusSubmitted, p.Stages[Define].Status)
}

func TestRejectAfterApprovalKeepsNextStageOpen(t *testing.T) {
	p := newTestProject(t)
	approve(t, p, Empathize)

	ev, err := p.ApplyVerdict(Empathize, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, ev.Status)
	assert.Equal(t, StatusApproved, ev.Previous)
	assert.Equal(t, StatusInProgress, p.Stages[Define].Status)
}

func TestApproveLastStage(t *testing.T) {
	p := newTestProject(t)
	for _, s := range Stages() {
		ev := approve(t, p, s)
		if s == Implement {
			assert.Empty(t, ev.Unlocked)
		}
	}
	for _, s := range Stages() {
		assert.Equal(t, StatusApproved, p.Stages[s].Status)
	}
}

func TestVerdictRequiresSubmission(t *testing.T) {
	p := newTestProject(t)

	_, err := p.ApplyVerdict(Empathize, true)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	_, err = p.ApplyVerdict(Define, false)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	assert.Equal(t, StatusLocked, p.Stages[Define].Status)
}

func TestRejectReopenAndResubmit(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Submit(Empathize))
	_, err := p.ApplyVerdict(Empathize, false)
	require.NoError(t, err)

	// a rejected stage goes back through IN_PROGRESS
	err = p.Submit(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	assert.Equal(t, StatusRejected, p.Stages[Empathize].Status)

	require.NoError(t, p.Reopen(Empathize))
	require.NoError(t, p.Submit(Empathize))
	assert.Equal(t, StatusSubmitted, p.Stages[Empathize].Status)

	_, err = p.ApplyVerdict(Empathize, false)
	require.NoError(t, err)
	require.NoError(t, p.Reopen(Empathize))
	assert.Equal(t, StatusInProgress, p.Stages[Empathize].Status)

	err = p.Reopen(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
}

func TestInactiveProjectRejectsStudentMutations(t *testing.T) {
	p := newTestProject(t)
	p.SetActive(false)

	err := p.Submit(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
	_, err = p.AddOption(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))

	// instructor actions still apply
	require.NoError(t, p.UpdateScore(Empathize, 7))
	require.NoError(t, p.UpdateFeedback(Empathize, "Keep going"))
}

func TestTotalScoreExample(t *testing.T) {
	p := newTestProject(t)
	scores := map[StageType]float64{
		Empathize: 8, Define: 7, Ideate: 9, Prototype: 6, Test: 10, Implement: 5,
	}
	for s, v := range scores {
		require.NoError(t, p.UpdateScore(s, v))
	}
	assert.Equal(t, 7.55, p.TotalScore)
}

func TestTotalScoreOrderInvariant(t *testing.T) {
	scores := []float64{8.5, 7, 9.5, 6, 10, 5.5}

	forward := newTestProject(t)
	for i, s := range Stages() {
		require.NoError(t, forward.UpdateScore(s, scores[i]))
	}
	backward := newTestProject(t)
	stages := Stages()
	for i := len(stages) - 1; i >= 0; i-- {
		require.NoError(t, backward.UpdateScore(stages[i], scores[i]))
	}
	assert.Equal(t, forward.TotalScore, backward.TotalScore)
	assert.Equal(t, TotalScore(forward.Stages), forward.TotalScore)
}

func TestTotalScoreClampsOutOfRange(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.UpdateScore(Empathize, 42))
	require.NoError(t, p.UpdateScore(Define, -3))

	assert.Equal(t, 42.0, p.Stages[Empathize].Score)
	assert.Equal(t, 1.5, p.TotalScore)

	err := p.UpdateScore(Ideate, math.NaN())
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, 2.5, Round2(2.499999))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 0.0, ClampScore(math.NaN()))
}

func TestOptionsAndAssets(t *testing.T) {
	sequentialIDs(t)
	p := newTestProject(t)

	opt, err := p.AddOption(Empathize)
	require.NoError(t, err)
	assert.Equal(t, "Option 1", opt.Title)

	opt2, err := p.AddOption(Empathize)
	require.NoError(t, err)
	assert.Equal(t, "Option 2", opt2.Title)

	title, sel := "Interview notes", true
	updated, err := p.UpdateOption(Empathize, opt.ID, OptionPatch{Title: &title, IsSelected: &sel})
	require.NoError(t, err)
	assert.Equal(t, "Interview notes", updated.Title)
	assert.True(t, updated.IsSelected)

	asset, err := p.AttachAsset(Empathize, opt.ID, AssetInput{
		Name: "persona.png", ContentType: "image/png", Size: 3, Ref: "assets/abc/persona.png",
	})
	require.NoError(t, err)
	assert.Equal(t, AssetImage, asset.Kind)

	_, err = p.AddAnnotation(Empathize, opt.ID, asset.ID, AnnotationInput{X: 10, Y: 20})
	require.NoError(t, err)
	ann, err := p.AddAnnotation(Empathize, opt.ID, asset.ID, AnnotationInput{X: 50, Y: 50, Color: "#000000", Text: "why?"})
	require.NoError(t, err)

	stored := p.Stages[Empathize].Options[0].Assets[0]
	require.Len(t, stored.Annotations, 2)
	assert.Equal(t, DefaultAnnotationColor, stored.Annotations[0].Color)

	_, err = p.UpdateAnnotationText(Empathize, opt.ID, asset.ID, ann.ID, "clarify")
	require.NoError(t, err)
	require.NoError(t, p.RemoveAnnotation(Empathize, opt.ID, asset.ID, stored.Annotations[0].ID))
	assert.Len(t, p.Stages[Empathize].Options[0].Assets[0].Annotations, 1)
	assert.Equal(t, "clarify", p.Stages[Empathize].Options[0].Assets[0].Annotations[0].Text)

	removed, err := p.RemoveAsset(Empathize, opt.ID, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "assets/abc/persona.png", removed.Ref)
	assert.Empty(t, p.Stages[Empathize].Options[0].Assets)

	_, err = p.AddAnnotation(Empathize, opt.ID, asset.ID, AnnotationInput{X: 1, Y: 1})
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestAnnotationValidation(t *testing.T) {
	p := newTestProject(t)
	opt, err := p.AddOption(Empathize)
	require.NoError(t, err)
	asset, err := p.AttachAsset(Empathize, opt.ID, AssetInput{Name: "brief.pdf", ContentType: "application/pdf", Ref: "r"})
	require.NoError(t, err)
	assert.Equal(t, AssetPDF, asset.Kind)

	_, err = p.AddAnnotation(Empathize, opt.ID, asset.ID, AnnotationInput{X: 101, Y: 5})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = p.ReplaceAnnotations(Empathize, opt.ID, asset.ID, []Annotation{{X: 5, Y: 5}, {X: -1, Y: 5}})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	assert.Empty(t, p.Stages[Empathize].Options[0].Assets[0].Annotations)

	out, err := p.ReplaceAnnotations(Empathize, opt.ID, asset.ID, []Annotation{{ID: "keep", X: 5, Y: 5}, {X: 6, Y: 7}})
	require.NoError(t, err)
	assert.Equal(t, "keep", out[0].ID)
	assert.NotEmpty(t, out[1].ID)
}

func TestClassifyContentType(t *testing.T) {
	assert.Equal(t, AssetImage, ClassifyContentType("image/jpeg"))
	assert.Equal(t, AssetPDF, ClassifyContentType("application/PDF"))
	assert.Equal(t, AssetDoc, ClassifyContentType("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.Equal(t, AssetDoc, ClassifyContentType(""))
}

func TestContentEditsBlockedOnLockedOrApprovedStage(t *testing.T) {
	p := newTestProject(t)

	_, err := p.AddOption(Define)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))

	approve(t, p, Empathize)
	_, err = p.AddOption(Empathize)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidTransition))
}

func TestChecklistToggle(t *testing.T) {
	p := newTestProject(t)

	item, err := p.ToggleChecklistItem(Empathize, "1")
	require.NoError(t, err)
	assert.True(t, item.Completed)
	item, err = p.ToggleChecklistItem(Empathize, "1")
	require.NoError(t, err)
	assert.False(t, item.Completed)

	_, err = p.ToggleChecklistItem(Empathize, "9")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestCloneIsDeep(t *testing.T) {
	p := newTestProject(t)
	opt, err := p.AddOption(Empathize)
	require.NoError(t, err)
	_, err = p.AttachAsset(Empathize, opt.ID, AssetInput{Name: "a.png", ContentType: "image/png", Ref: "r"})
	require.NoError(t, err)

	cp := p.Clone()
	require.NoError(t, cp.Submit(Empathize))
	cp.Stages[Empathize].Options[0].Title = "changed"
	cp.Stages[Empathize].Options[0].Assets[0].Annotations = append(cp.Stages[Empathize].Options[0].Assets[0].Annotations, Annotation{ID: "x"})
	cp.RefreshStudentName("Grace Hopper")

	assert.Equal(t, StatusInProgress, p.Stages[Empathize].Status)
	assert.Equal(t, "Option 1", p.Stages[Empathize].Options[0].Title)
	assert.Empty(t, p.Stages[Empathize].Options[0].Assets[0].Annotations)
	assert.Equal(t, "Ada Lovelace", p.StudentName)
}

func TestSummarize(t *testing.T) {
	p := newTestProject(t)
	approve(t, p, Empathize)

	s := p.Summarize()
	assert.Equal(t, p.ID, s.ID)
	assert.Equal(t, StatusApproved, s.Statuses[Empathize])
	assert.Equal(t, StatusInProgress, s.Statuses[Define])
}
