package assistant

import (
	"context"
	"time"

	"google.golang.org/genai"

	appErr "github.com/designwheel/engine/pkg/errors"
)

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "init gemini client failed")
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "gemini generate failed")
	}
	return resp.Text(), nil
}

var _ Generator = (*GeminiGenerator)(nil)

// FromConfig returns a Gemini backed Assistant, or Noop when apiKey is empty.
func FromConfig(ctx context.Context, apiKey, model string, timeout time.Duration) (Assistant, error) {
	if apiKey == "" {
		return Noop{}, nil
	}
	gen, err := NewGeminiGenerator(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}
	return New(gen, timeout), nil
}
