package workflow

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, prompt string, jsonOutput bool) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the llm workflow")
	}
	return newGeminiGenerator(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

func newGeminiGenerator(ctx context.Context, config *genai.ClientConfig, model string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GenAI client")
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate streams the completion and returns the concatenated chunks.
func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt, prompt string, jsonOutput bool) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if jsonOutput {
		config.ResponseMIMEType = "application/json"
	}

	var out strings.Builder
	chunks := g.client.Models.GenerateContentStream(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		config,
	)
	for chunk, err := range chunks {
		if err != nil {
			return "", errors.Wrap(err, "GenAI generation failed")
		}
		out.WriteString(chunk.Text())
	}
	return strings.TrimSpace(out.String()), nil
}
