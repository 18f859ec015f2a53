package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthfin/healthcare-api/models"
)

type SessionRepository struct {
	mock.Mock
}

func (r *SessionRepository) Initialize(ctx context.Context) error {
	args := r.Called()
	return args.Error(0)
}

func (r *SessionRepository) Close() error {
	args := r.Called()
	return args.Error(0)
}

func (r *SessionRepository) SaveSession(ctx context.Context, sessionId, userId string, state models.AgentState, title *string) error {
	args := r.Called(sessionId, userId, state, title)
	return args.Error(0)
}

func (r *SessionRepository) GetSession(ctx context.Context, sessionId string) (models.Session, error) {
	args := r.Called(sessionId)
	return args.Get(0).(models.Session), args.Error(1)
}

func (r *SessionRepository) ListSessions(ctx context.Context, filter models.SessionListFilter) ([]models.SessionSummary, error) {
	args := r.Called(filter)
	return args.Get(0).([]models.SessionSummary), args.Error(1)
}

func (r *SessionRepository) CountSessions(ctx context.Context, userId string) (int, error) {
	args := r.Called(userId)
	return args.Int(0), args.Error(1)
}

func (r *SessionRepository) DeleteSession(ctx context.Context, sessionId string) error {
	args := r.Called(sessionId)
	return args.Error(0)
}

func (r *SessionRepository) SaveTurn(ctx context.Context, turn models.TurnInput) error {
	args := r.Called(turn)
	return args.Error(0)
}

func (r *SessionRepository) GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error) {
	args := r.Called(sessionId, limit)
	return args.Get(0).([]models.Turn), args.Error(1)
}

func (r *SessionRepository) GetLatestTurn(ctx context.Context, sessionId string) (*models.Turn, error) {
	args := r.Called(sessionId)
	return args.Get(0).(*models.Turn), args.Error(1)
}

func (r *SessionRepository) HealthCheck(ctx context.Context) error {
	args := r.Called()
	return args.Error(0)
}
