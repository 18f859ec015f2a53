package models

type WorkflowEventType string

const (
	WorkflowEventStart             WorkflowEventType = "workflow_start"
	WorkflowEventNodeComplete      WorkflowEventType = "node_complete"
	WorkflowEventNarrative         WorkflowEventType = "narrative"
	WorkflowEventSqlResult         WorkflowEventType = "sql_result"
	WorkflowEventChart             WorkflowEventType = "chart"
	WorkflowEventFollowupQuestions WorkflowEventType = "followup_questions"
	WorkflowEventEnd               WorkflowEventType = "workflow_end"
	WorkflowEventError             WorkflowEventType = "error"
)

// WorkflowEvent is one step reported by a workflow run. Only the fields
// relevant to the event type are set.
type WorkflowEvent struct {
	Type      WorkflowEventType
	Node      string
	Status    string
	Content   string
	Data      any
	Questions []string
	State     AgentState
	Error     string
}

type WorkflowRequest struct {
	Question      string
	SessionId     string
	UserId        string
	UserEmail     string
	ExistingState AgentState
	ThreadId      string
}

type ClarificationType string

const (
	ClarificationDomain  ClarificationType = "domain"
	ClarificationDataset ClarificationType = "dataset"
	ClarificationSql     ClarificationType = "sql"
)
