package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/healthfin/healthcare-api/models"
)

func TestAdaptChatMessage(t *testing.T) {
	tts := []struct {
		name     string
		msg      models.ChatMessage
		expected string
	}{
		{
			"stream token",
			models.ChatMessage{Type: models.ChatMessageStream, Token: "hello "},
			`{"type":"stream","token":"hello ","done":false}`,
		},
		{
			"stream end",
			models.ChatMessage{Type: models.ChatMessageStream, Done: true},
			`{"type":"stream","token":"","done":true}`,
		},
		{
			"status without node",
			models.ChatMessage{Type: models.ChatMessageStatus, Status: "started", Message: "Workflow started..."},
			`{"type":"status","status":"started","message":"Workflow started..."}`,
		},
		{
			"followup questions never null",
			models.ChatMessage{Type: models.ChatMessageData, DataType: models.ChatDataFollowupQuestions},
			`{"type":"data","data_type":"followup_questions","questions":[]}`,
		},
		{
			"chart",
			models.ChatMessage{Type: models.ChatMessageData, DataType: models.ChatDataChart, Spec: map[string]any{"mark": "bar"}},
			`{"type":"data","data_type":"chart","spec":{"mark":"bar"}}`,
		},
		{
			"clarification",
			models.ChatMessage{
				Type:              models.ChatMessageClarification,
				ClarificationType: models.ClarificationDataset,
				Message:           "Which dataset?",
			},
			`{"type":"clarification","clarification_type":"dataset","message":"Which dataset?"}`,
		},
		{
			"history",
			models.ChatMessage{
				Type:      models.ChatMessageHistory,
				SessionId: "s1",
				Turns:     []models.Turn{{TurnNumber: 1, UserQuestion: "q", AgentResponse: "a"}},
			},
			`{"type":"history","session_id":"s1","turns":[{"turn_number":1,"question":"q","response":"a"}]}`,
		},
		{
			"complete with empty metadata",
			models.ChatMessage{Type: models.ChatMessageComplete, Response: "r", SessionId: "s1", TurnNumber: 2},
			`{"type":"complete","response":"r","session_id":"s1","turn_number":2,"metadata":{}}`,
		},
		{
			"pong",
			models.ChatMessage{Type: models.ChatMessagePong},
			`{"type":"pong"}`,
		},
		{
			"error",
			models.ChatMessage{Type: models.ChatMessageError, Error: "boom"},
			`{"type":"error","error":"boom"}`,
		},
	}

	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(AdaptChatMessage(tt.msg))
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(out))
		})
	}
}

func TestChatIncomingMessageDefaults(t *testing.T) {
	var msg ChatIncomingMessageDto
	require.NoError(t, json.Unmarshal([]byte(`{"question":"How many claims?"}`), &msg))

	assert.Equal(t, ChatIncomingMessage, msg.MessageType())
	assert.Equal(t, "How many claims?", msg.Request().Question)
}

func TestValidateChatMessage(t *testing.T) {
	assert.NoError(t, ValidateChatMessage(ChatIncomingMessageDto{Question: "ok"}))
	assert.NoError(t, ValidateChatMessage(ChatIncomingMessageDto{Type: ChatIncomingPing}))

	err := ValidateChatMessage(ChatIncomingMessageDto{Question: strings.Repeat("a", ChatQuestionMaxLength+1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.BadParameterError))
	assert.Equal(t, "field `question` must have at most 8000 characters", models.PublicMessage(err))
}

func TestChatProtocolSchema(t *testing.T) {
	out, err := json.Marshal(ChatProtocolSchema())
	require.NoError(t, err)

	doc := gjson.ParseBytes(out)
	assert.True(t, doc.Get("$defs.client_message.properties.question").Exists())
	assert.Equal(t, int64(10), doc.Get("$defs.server_message.oneOf.#").Int())
	assert.Equal(t, "stream", doc.Get("$defs.server_message.oneOf.1.properties.type.enum.0").String())
}
