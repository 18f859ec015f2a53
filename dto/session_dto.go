package dto

import (
	"time"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/pure_utils"
)

type SessionListQuery struct {
	UserId string `form:"user_id" binding:"required"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

func (q SessionListQuery) Filter() models.SessionListFilter {
	return models.SessionListFilter{
		UserId: q.UserId,
		Limit:  pure_utils.PtrValueOrDefault(q.Limit, models.SessionListDefaultLimit),
		Offset: q.Offset,
	}
}

type SessionDetailQuery struct {
	IncludeTurns *bool `form:"include_turns"`
}

type SessionHistoryQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type SessionUriInput struct {
	SessionId string `uri:"session_id" binding:"required"`
}

type SessionSummaryDto struct {
	SessionId string    `json:"session_id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func AdaptSessionSummaryDto(s models.SessionSummary) SessionSummaryDto {
	return SessionSummaryDto{
		SessionId: s.SessionId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type SessionListDto struct {
	Sessions []SessionSummaryDto `json:"sessions"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
}

func AdaptSessionListDto(list models.SessionList) SessionListDto {
	return SessionListDto{
		Sessions: pure_utils.Map(list.Sessions, AdaptSessionSummaryDto),
		Total:    list.Total,
		Limit:    list.Limit,
		Offset:   list.Offset,
	}
}

type TurnDto struct {
	TurnNumber int       `json:"turn_number"`
	Question   string    `json:"question"`
	Response   string    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
}

func AdaptTurnDto(t models.Turn) TurnDto {
	return TurnDto{
		TurnNumber: t.TurnNumber,
		Question:   t.UserQuestion,
		Response:   t.AgentResponse,
		CreatedAt:  t.CreatedAt,
	}
}

type SessionDetailDto struct {
	SessionId string    `json:"session_id"`
	UserId    string    `json:"user_id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []TurnDto `json:"turns"`
}

func AdaptSessionDetailDto(session models.Session, turns []models.Turn) SessionDetailDto {
	return SessionDetailDto{
		SessionId: session.SessionId,
		UserId:    session.UserId,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Turns:     pure_utils.Map(turns, AdaptTurnDto),
	}
}

type DeleteSessionDto struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SessionStateDto struct {
	SessionId string         `json:"session_id"`
	State     map[string]any `json:"state"`
}
