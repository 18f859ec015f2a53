package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/usecases/workflow"
)

// Workflow replays the events given to Run.
type Workflow struct {
	mock.Mock
}

func (w *Workflow) Mode() workflow.Mode {
	args := w.Called()
	return args.Get(0).(workflow.Mode)
}

func (w *Workflow) Run(ctx context.Context, req models.WorkflowRequest) <-chan models.WorkflowEvent {
	args := w.Called(req)
	events := args.Get(0).([]models.WorkflowEvent)

	out := make(chan models.WorkflowEvent, len(events))
	for _, e := range events {
		out <- e
	}
	close(out)
	return out
}
