package models

import (
	"time"
)

// AgentState is the free form state carried by the analytics workflow between turns.
type AgentState map[string]any

const (
	StateKeyTurnNumber      = "turn_number"
	StateKeySessionId       = "session_id"
	StateKeyUserId          = "user_id"
	StateKeyUserEmail       = "user_email"
	StateKeyUserQuestion    = "user_question"
	StateKeyCurrentQuestion = "current_question"
	StateKeyQuestionHistory = "user_question_history"
	StateKeyErrors          = "errors"
	StateKeyTimestamp       = "timestamp"
	StateKeyQuestionType    = "question_type"
	StateKeyNextAgent       = "next_agent"
)

const AnonymousUserId = "anonymous"

// TurnNumber reads the turn counter. JSON decoding yields float64, storage layers may yield ints.
func (s AgentState) TurnNumber() int {
	switch v := s[StateKeyTurnNumber].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (s AgentState) String(key string) string {
	v, _ := s[key].(string)
	return v
}

type Session struct {
	SessionId string
	UserId    string
	Title     *string
	State     AgentState
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SessionSummary struct {
	SessionId string
	UserId    string
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SessionListFilter struct {
	UserId string
	Limit  int
	Offset int
}

type SessionList struct {
	Sessions []SessionSummary
	Total    int
	Limit    int
	Offset   int
}

type Turn struct {
	SessionId     string
	TurnNumber    int
	UserQuestion  string
	AgentResponse string
	StateSnapshot AgentState
	Metadata      map[string]any
	CreatedAt     time.Time
}

type TurnInput struct {
	SessionId     string
	TurnNumber    int
	UserQuestion  string
	AgentResponse string
	StateSnapshot AgentState
	Metadata      map[string]any
}

const (
	SessionListDefaultLimit = 50
	SessionListMaxLimit     = 100
	SessionTitleMaxLength   = 100
)

// SessionTitle is the title given to a session from its first question.
func SessionTitle(question string) string {
	runes := []rune(question)
	if len(runes) > SessionTitleMaxLength {
		runes = runes[:SessionTitleMaxLength]
	}
	return string(runes)
}
