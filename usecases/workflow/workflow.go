package workflow

import (
	"context"

	"github.com/healthfin/healthcare-api/models"
)

type Mode string

const (
	ModePlaceholder Mode = "placeholder"
	ModeLlm         Mode = "llm"
)

// Workflow answers a question and reports its progress as a stream of events.
// The returned channel is closed when the run is over. A run always starts
// with a workflow_start event and ends with workflow_end unless it fails, in
// which case the last event is an error. The workflow_end event carries the
// complete state, callers sanitize it before exposing it.
type Workflow interface {
	Mode() Mode
	Run(ctx context.Context, req models.WorkflowRequest) <-chan models.WorkflowEvent
}

type Config struct {
	Mode         Mode
	GeminiApiKey string
	Model        string
}

// New builds the workflow selected by the configuration. The placeholder
// workflow is returned when the LLM workflow cannot be set up.
func New(ctx context.Context, cfg Config) Workflow {
	if cfg.Mode != ModeLlm {
		return NewPlaceholderWorkflow()
	}

	generator, err := NewGeminiGenerator(ctx, cfg.GeminiApiKey, cfg.Model)
	if err != nil {
		logger(ctx).WarnContext(ctx, "could not set up the llm workflow, falling back to placeholder",
			"error", err.Error())
		return NewPlaceholderWorkflow()
	}
	return NewLlmWorkflow(generator)
}

// emit sends the event unless the run was cancelled.
func emit(ctx context.Context, events chan<- models.WorkflowEvent, event models.WorkflowEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
