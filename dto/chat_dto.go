package dto

import (
	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/pure_utils"
)

const (
	ChatIncomingMessage = "message"
	ChatIncomingPing    = "ping"

	ChatQuestionMaxLength = 8000
)

// ChatIncomingMessageDto is a client to server frame. A missing type means "message".
type ChatIncomingMessageDto struct {
	Type      string `json:"type,omitempty" jsonschema:"enum=message,enum=ping" jsonschema_description:"Frame type, defaults to message"`
	SessionId string `json:"session_id,omitempty" validate:"omitempty,max=255" jsonschema_description:"Session to continue, a new one is created when missing"`
	UserId    string `json:"user_id,omitempty" validate:"omitempty,max=255" jsonschema_description:"Defaults to the session owner, then anonymous"`
	UserEmail string `json:"user_email,omitempty" validate:"omitempty,max=320"`
	Question  string `json:"question,omitempty" validate:"max=8000" jsonschema_description:"The question asked to the analytics assistant"`
}

func (m ChatIncomingMessageDto) MessageType() string {
	if m.Type == "" {
		return ChatIncomingMessage
	}
	return m.Type
}

func (m ChatIncomingMessageDto) Request() models.ChatRequest {
	return models.ChatRequest{
		SessionId: m.SessionId,
		UserId:    m.UserId,
		UserEmail: m.UserEmail,
		Question:  m.Question,
	}
}

type ChatStatusDto struct {
	Type    string `json:"type" jsonschema:"enum=status"`
	Status  string `json:"status" jsonschema:"enum=started,enum=processing"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
}

type ChatStreamDto struct {
	Type  string `json:"type" jsonschema:"enum=stream"`
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

type ChatCompleteDto struct {
	Type       string         `json:"type" jsonschema:"enum=complete"`
	Response   string         `json:"response"`
	SessionId  string         `json:"session_id"`
	TurnNumber int            `json:"turn_number"`
	Metadata   map[string]any `json:"metadata"`
}

type ChatSqlResultDto struct {
	Type     string `json:"type" jsonschema:"enum=data"`
	DataType string `json:"data_type" jsonschema:"enum=sql_result"`
	Data     any    `json:"data"`
}

type ChatChartDto struct {
	Type     string `json:"type" jsonschema:"enum=data"`
	DataType string `json:"data_type" jsonschema:"enum=chart"`
	Spec     any    `json:"spec"`
}

type ChatFollowupQuestionsDto struct {
	Type      string   `json:"type" jsonschema:"enum=data"`
	DataType  string   `json:"data_type" jsonschema:"enum=followup_questions"`
	Questions []string `json:"questions"`
}

type ChatClarificationDto struct {
	Type              string `json:"type" jsonschema:"enum=clarification"`
	ClarificationType string `json:"clarification_type" jsonschema:"enum=domain,enum=dataset,enum=sql"`
	Message           string `json:"message"`
}

type ChatErrorDto struct {
	Type  string `json:"type" jsonschema:"enum=error"`
	Error string `json:"error"`
}

type ChatHistoryTurnDto struct {
	TurnNumber int    `json:"turn_number"`
	Question   string `json:"question"`
	Response   string `json:"response"`
}

type ChatHistoryDto struct {
	Type      string               `json:"type" jsonschema:"enum=history"`
	SessionId string               `json:"session_id"`
	Turns     []ChatHistoryTurnDto `json:"turns"`
}

type ChatPongDto struct {
	Type string `json:"type" jsonschema:"enum=pong"`
}

func adaptChatHistoryTurnDto(t models.Turn) ChatHistoryTurnDto {
	return ChatHistoryTurnDto{
		TurnNumber: t.TurnNumber,
		Question:   t.UserQuestion,
		Response:   t.AgentResponse,
	}
}

// AdaptChatMessage returns the wire representation of a server message.
func AdaptChatMessage(msg models.ChatMessage) any {
	msgType := string(msg.Type)

	switch msg.Type {
	case models.ChatMessageStatus:
		return ChatStatusDto{Type: msgType, Status: msg.Status, Message: msg.Message, Node: msg.Node}
	case models.ChatMessageStream:
		return ChatStreamDto{Type: msgType, Token: msg.Token, Done: msg.Done}
	case models.ChatMessageComplete:
		metadata := msg.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		return ChatCompleteDto{
			Type:       msgType,
			Response:   msg.Response,
			SessionId:  msg.SessionId,
			TurnNumber: msg.TurnNumber,
			Metadata:   metadata,
		}
	case models.ChatMessageData:
		switch msg.DataType {
		case models.ChatDataChart:
			return ChatChartDto{Type: msgType, DataType: string(msg.DataType), Spec: msg.Spec}
		case models.ChatDataFollowupQuestions:
			questions := msg.Questions
			if questions == nil {
				questions = []string{}
			}
			return ChatFollowupQuestionsDto{Type: msgType, DataType: string(msg.DataType), Questions: questions}
		default:
			return ChatSqlResultDto{Type: msgType, DataType: string(msg.DataType), Data: msg.Data}
		}
	case models.ChatMessageClarification:
		return ChatClarificationDto{
			Type:              msgType,
			ClarificationType: string(msg.ClarificationType),
			Message:           msg.Message,
		}
	case models.ChatMessageHistory:
		return ChatHistoryDto{
			Type:      msgType,
			SessionId: msg.SessionId,
			Turns:     pure_utils.Map(msg.Turns, adaptChatHistoryTurnDto),
		}
	case models.ChatMessagePong:
		return ChatPongDto{Type: msgType}
	default:
		return ChatErrorDto{Type: string(models.ChatMessageError), Error: msg.Error}
	}
}
