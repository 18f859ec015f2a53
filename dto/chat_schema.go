package dto

import (
	"github.com/invopop/jsonschema"
)

// ChatProtocolSchema describes the frames exchanged on the chat websocket.
func ChatProtocolSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{DoNotReference: true}

	serverMessages := []any{
		&ChatStatusDto{},
		&ChatStreamDto{},
		&ChatCompleteDto{},
		&ChatSqlResultDto{},
		&ChatChartDto{},
		&ChatFollowupQuestionsDto{},
		&ChatClarificationDto{},
		&ChatErrorDto{},
		&ChatHistoryDto{},
		&ChatPongDto{},
	}
	oneOf := make([]*jsonschema.Schema, 0, len(serverMessages))
	for _, msg := range serverMessages {
		s := reflector.Reflect(msg)
		s.Version = ""
		oneOf = append(oneOf, s)
	}

	client := reflector.Reflect(&ChatIncomingMessageDto{})
	client.Version = ""

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Chat websocket protocol",
		Description: "JSON text frames exchanged on /ws/chat and /ws/chat/{session_id}",
		Definitions: jsonschema.Definitions{
			"client_message": client,
			"server_message": {OneOf: oneOf},
		},
	}
}
