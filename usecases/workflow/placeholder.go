package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/healthfin/healthcare-api/models"
)

// PlaceholderWorkflow echoes the question back. It runs without any model or
// warehouse and exercises the whole streaming protocol.
type PlaceholderWorkflow struct {
	now func() time.Time
}

func NewPlaceholderWorkflow() *PlaceholderWorkflow {
	return &PlaceholderWorkflow{now: time.Now}
}

func (w *PlaceholderWorkflow) Mode() Mode { return ModePlaceholder }

func PlaceholderResponse(question string) string {
	return fmt.Sprintf("I received your question: '%s'. "+
		"This is a placeholder response for testing. "+
		"Connect Databricks credentials to enable the full workflow.", question)
}

func (w *PlaceholderWorkflow) Run(ctx context.Context, req models.WorkflowRequest) <-chan models.WorkflowEvent {
	events := make(chan models.WorkflowEvent)

	go func() {
		defer close(events)

		state, err := BuildInitialState(req, w.now())
		if err != nil {
			emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventError, Error: err.Error()})
			return
		}

		if !emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventStart}) {
			return
		}

		response := PlaceholderResponse(req.Question)
		state["narrative_response"] = response
		state[models.StateKeyQuestionType] = "placeholder"

		if !emit(ctx, events, models.WorkflowEvent{
			Type:   models.WorkflowEventNodeComplete,
			Node:   "narrative_agent",
			Status: NodeStatusMessage("narrative_agent", state),
		}) {
			return
		}
		if !emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventNarrative, Content: response}) {
			return
		}
		emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventEnd, State: state})
	}()

	return events
}
