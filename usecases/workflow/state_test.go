package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthfin/healthcare-api/models"
)

func TestBuildInitialState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	t.Run("fresh session", func(t *testing.T) {
		state, err := BuildInitialState(models.WorkflowRequest{
			Question:  "What is the claims denial rate?",
			SessionId: "s-1",
			UserId:    "u-1",
		}, now)
		require.NoError(t, err)

		assert.Equal(t, "What is the claims denial rate?", state[models.StateKeyUserQuestion])
		assert.Equal(t, "What is the claims denial rate?", state[models.StateKeyCurrentQuestion])
		assert.Equal(t, "s-1", state[models.StateKeySessionId])
		assert.Equal(t, "u-1", state[models.StateKeyUserId])
		assert.Nil(t, state[models.StateKeyUserEmail])
		assert.Equal(t, "2025-06-01T11:00:00Z", state[models.StateKeyTimestamp])
		assert.Equal(t, []any{}, state[models.StateKeyQuestionHistory])
		assert.Equal(t, []any{}, state[models.StateKeyErrors])
	})

	t.Run("existing state is merged and left untouched", func(t *testing.T) {
		existing := models.AgentState{
			"turn_number":           float64(2),
			"user_question_history": []any{"first question"},
			"domain_selection":      "pharmacy",
		}
		state, err := BuildInitialState(models.WorkflowRequest{
			Question:      "And last month?",
			SessionId:     "s-1",
			UserId:        "u-1",
			UserEmail:     "analyst@example.com",
			ExistingState: existing,
		}, now)
		require.NoError(t, err)

		assert.Equal(t, 2, state.TurnNumber())
		assert.Equal(t, "pharmacy", state["domain_selection"])
		assert.Equal(t, "analyst@example.com", state[models.StateKeyUserEmail])
		assert.Equal(t, []any{"first question"}, state[models.StateKeyQuestionHistory])

		appendHistory(state, "And last month?")
		assert.Equal(t, []any{"first question"}, existing["user_question_history"])
		assert.NotContains(t, existing, models.StateKeyUserQuestion)
	})
}

func TestNodeStatusMessage(t *testing.T) {
	tts := []struct {
		node     string
		data     map[string]any
		expected string
	}{
		{"entry_router", nil, "Analyzing your question..."},
		{"router_agent", map[string]any{}, "Selecting relevant data sources..."},
		{"narrative_agent", nil, "Generating response..."},
		{"custom_node", nil, "Processing custom_node..."},
		{"router_agent", map[string]any{"requires_domain_clarification": true}, "Need clarification on which area to analyze..."},
		{"router_agent", map[string]any{"requires_dataset_clarification": true}, "Need clarification on which dataset to use..."},
		{"entry_router", map[string]any{"greeting_response": "Hi!"}, "Responding to greeting..."},
		{"entry_router", map[string]any{"greeting_response": ""}, "Analyzing your question..."},
	}

	for _, tt := range tts {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, NodeStatusMessage(tt.node, tt.data))
		})
	}
}

func TestSanitizeState(t *testing.T) {
	state := models.AgentState{
		"session_id":         "s-1",
		"narrative_response": "Denials went up 3%.",
		"errors":             []any{},
		"chart_spec":         nil,
		"sql_query":          "SELECT * FROM claims",
		"raw_results":        []any{1, 2, 3},
		"turn_number":        float64(4),
	}

	sanitized := SanitizeState(state)

	assert.Equal(t, models.AgentState{
		"session_id":         "s-1",
		"narrative_response": "Denials went up 3%.",
		"errors":             []any{},
	}, sanitized)
}
