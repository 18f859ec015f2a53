package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"github.com/mitchellh/copystructure"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/utils"
)

// BuildInitialState merges the stored session state with the new question.
// The existing state is deep copied and never modified.
func BuildInitialState(req models.WorkflowRequest, now time.Time) (models.AgentState, error) {
	state := models.AgentState{}
	if req.ExistingState != nil {
		copied, err := copystructure.Copy(req.ExistingState)
		if err != nil {
			return nil, errors.Wrap(err, "could not copy existing state")
		}
		state = copied.(models.AgentState)
	}

	state[models.StateKeyUserQuestion] = req.Question
	state[models.StateKeyCurrentQuestion] = req.Question
	state[models.StateKeySessionId] = req.SessionId
	state[models.StateKeyUserId] = req.UserId
	if req.UserEmail != "" {
		state[models.StateKeyUserEmail] = req.UserEmail
	} else {
		state[models.StateKeyUserEmail] = nil
	}
	state[models.StateKeyTimestamp] = now.UTC().Format(time.RFC3339Nano)

	if _, ok := state[models.StateKeyQuestionHistory]; !ok {
		state[models.StateKeyQuestionHistory] = []any{}
	}
	if _, ok := state[models.StateKeyErrors]; !ok {
		state[models.StateKeyErrors] = []any{}
	}
	return state, nil
}

var nodeStatusMessages = map[string]string{
	"entry_router":               "Analyzing your question...",
	"navigation_controller":      "Understanding intent and context...",
	"router_agent":               "Selecting relevant data sources...",
	"strategy_planner_agent":     "Planning analysis strategy...",
	"drillthrough_planner_agent": "Performing detailed analysis...",
	"narrative_agent":            "Generating response...",
	"followup_question_agent":    "Suggesting follow-up questions...",
}

// NodeStatusMessage is the progress message shown to the user once a node completed.
func NodeStatusMessage(node string, data map[string]any) string {
	if truthy(data["requires_domain_clarification"]) {
		return "Need clarification on which area to analyze..."
	}
	if truthy(data["requires_dataset_clarification"]) {
		return "Need clarification on which dataset to use..."
	}
	if truthy(data["greeting_response"]) {
		return "Responding to greeting..."
	}
	if msg, ok := nodeStatusMessages[node]; ok {
		return msg
	}
	return fmt.Sprintf("Processing %s...", node)
}

var responseStateKeys = set.From([]string{
	"session_id", "user_id", "current_question", "user_question",
	"question_type", "rewritten_question", "next_agent",
	"domain_selection", "selected_dataset", "functional_names",
	"greeting_response", "narrative_response", "followup_questions",
	"chart_spec", "report_found", "report_url", "report_name",
	"requires_domain_clarification", "domain_followup_question",
	"requires_dataset_clarification", "dataset_followup_question",
	"needs_followup", "sql_followup_question",
	"errors", "nav_error_msg", "user_friendly_message",
})

// SanitizeState keeps the keys that are useful to clients, dropping nil values.
func SanitizeState(state models.AgentState) models.AgentState {
	out := make(models.AgentState, responseStateKeys.Size())
	for k, v := range state {
		if v != nil && responseStateKeys.Contains(k) {
			out[k] = v
		}
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

func logger(ctx context.Context) *slog.Logger {
	return utils.LoggerFromContext(ctx).With("component", "workflow")
}
