package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type TextGenerator struct {
	mock.Mock
}

func (g *TextGenerator) Generate(ctx context.Context, systemPrompt, prompt string, jsonOutput bool) (string, error) {
	args := g.Called(systemPrompt, prompt, jsonOutput)
	return args.String(0), args.Error(1)
}
