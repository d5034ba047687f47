package assistant

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/designwheel/engine/internal/workflow"
	"github.com/designwheel/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestNoopFallbacks(t *testing.T) {
	a := New(nil, time.Second)
	assert.Equal(t, MsgNotConfigured, a.Suggest(context.Background(), workflow.Ideate, "x"))
	assert.Equal(t, "", a.SummarizeFeedback(context.Background(), "good", 8))
}

func TestSuggestUsesStagePrompt(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Current Stage: Ideate") &&
			strings.Contains(p, "brainstorming triggers") &&
			strings.Contains(p, "Project Description: Reduce food waste")
	})).Return("- idea one\n- idea two", nil)

	out := New(gen, time.Second).Suggest(context.Background(), workflow.Ideate, " Reduce food waste ")
	assert.Equal(t, "- idea one\n- idea two", out)
	gen.AssertExpectations(t)
}

func TestSuggestFallbacks(t *testing.T) {
	failing := new(MockGenerator)
	failing.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota"))
	assert.Equal(t, MsgSuggestionsFailed, New(failing, time.Second).Suggest(context.Background(), workflow.Test, "x"))

	empty := new(MockGenerator)
	empty.On("Generate", mock.Anything, mock.Anything).Return("  ", nil)
	assert.Equal(t, MsgNoSuggestions, New(empty, time.Second).Suggest(context.Background(), workflow.Test, "x"))
}

func TestSummarizeFeedback(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Score given: 7.5/10.") && strings.Contains(p, "Feedback: More interviews")
	})).Return(" Great start, keep digging! \n", nil)

	a := New(gen, time.Second)
	assert.Equal(t, "Great start, keep digging!", a.SummarizeFeedback(context.Background(), "More interviews", 7.5))
	// empty feedback never reaches the model
	assert.Equal(t, "", a.SummarizeFeedback(context.Background(), "   ", 7.5))
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestSummarizeFeedbackSwallowsErrors(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded)
	assert.Equal(t, "", New(gen, time.Millisecond).SummarizeFeedback(context.Background(), "ok", 5))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "8", formatScore(8))
	assert.Equal(t, "7.5", formatScore(7.5))
	assert.Equal(t, "0", formatScore(0))
	assert.Equal(t, "7.55", formatScore(7.55))
}
