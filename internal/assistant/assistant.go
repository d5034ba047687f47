// Package assistant wraps the generative AI collaborator. Every call is best
// effort: failures are logged and turned into fixed fallback text so that the
// workflow never depends on the model being reachable.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/workflow"
	"github.com/designwheel/engine/pkg/logger"
)

const (
	MsgNotConfigured     = "API Key not configured."
	MsgNoSuggestions     = "No suggestions generated."
	MsgSuggestionsFailed = "Failed to generate suggestions. Please try again later."
)

// Assistant produces stage suggestions and feedback summaries.
type Assistant interface {
	Suggest(ctx context.Context, stage workflow.StageType, projectContext string) string
	SummarizeFeedback(ctx context.Context, feedback string, score float64) string
}

// Generator sends a single prompt to a model and returns its text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type assistant struct {
	gen     Generator
	timeout time.Duration
}

// New builds an Assistant over gen. A nil gen yields the unconfigured fallbacks.
func New(gen Generator, timeout time.Duration) Assistant {
	if gen == nil {
		return Noop{}
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &assistant{gen: gen, timeout: timeout}
}

var _ Assistant = (*assistant)(nil)

func (a *assistant) Suggest(ctx context.Context, stage workflow.StageType, projectContext string) string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.gen.Generate(ctx, suggestionPrompt(stage, projectContext))
	if err != nil {
		logger.L().Warn("stage suggestions failed", zap.String("stage", string(stage)), zap.Error(err))
		return MsgSuggestionsFailed
	}
	if strings.TrimSpace(out) == "" {
		return MsgNoSuggestions
	}
	return out
}

func (a *assistant) SummarizeFeedback(ctx context.Context, feedback string, score float64) string {
	if strings.TrimSpace(feedback) == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.gen.Generate(ctx, feedbackPrompt(feedback, score))
	if err != nil {
		logger.L().Warn("feedback summary failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(out)
}

// Noop is used when no API key is configured.
type Noop struct{}

func (Noop) Suggest(context.Context, workflow.StageType, string) string { return MsgNotConfigured }

func (Noop) SummarizeFeedback(context.Context, string, float64) string { return "" }

var stageHints = map[workflow.StageType]string{
	workflow.Empathize: "suggest interview questions",
	workflow.Define:    "suggest problem statements",
	workflow.Ideate:    "suggest brainstorming triggers",
	workflow.Prototype: "suggest low-fidelity methods",
	workflow.Test:      "suggest user feedback questions",
	workflow.Implement: "suggest rollout and delivery steps",
}

func suggestionPrompt(stage workflow.StageType, projectContext string) string {
	label := string(stage)
	if info, ok := workflow.Info(stage); ok {
		label = info.Label
	}
	var b strings.Builder
	b.WriteString("I am a student working on a Design Thinking project.\n")
	fmt.Fprintf(&b, "Project Description: %s\n", strings.TrimSpace(projectContext))
	fmt.Fprintf(&b, "Current Stage: %s\n\n", label)
	b.WriteString("Please provide 3-5 specific, actionable suggestions or checklist items for this stage.\n")
	if hint, ok := stageHints[stage]; ok {
		fmt.Fprintf(&b, "For this stage, %s.\n", hint)
	}
	b.WriteString("\nFormat the output as a simple Markdown list.")
	return b.String()
}

func feedbackPrompt(feedback string, score float64) string {
	return fmt.Sprintf(
		"As a supportive tutor, summarize this instructor feedback for a student in one encouraging sentence.\n"+
			"Score given: %s/10.\nFeedback: %s",
		formatScore(score), strings.TrimSpace(feedback))
}

func formatScore(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
