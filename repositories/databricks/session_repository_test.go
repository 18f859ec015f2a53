package databricks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"

	"github.com/healthfin/healthcare-api/models"
)

type executorMock struct {
	mock.Mock
}

func (m *executorMock) Execute(ctx context.Context, statement string, params ...Parameter) ([]Row, error) {
	args := m.Called(ctx, statement, params)
	rows, _ := args.Get(0).([]Row)
	return rows, args.Error(1)
}

func row(values map[string]string) Row {
	out := make(Row, len(values))
	for k, v := range values {
		out[k] = gjson.Result{Type: gjson.String, Str: v}
	}
	return out
}

func paramValue(params []Parameter, name string) (string, bool) {
	for _, p := range params {
		if p.Name == name {
			if p.Value == nil {
				return "", true
			}
			return *p.Value, true
		}
	}
	return "", false
}

type SessionRepositoryTestSuite struct {
	suite.Suite
	exec *executorMock
	repo *SessionRepository
	now  time.Time
}

func (s *SessionRepositoryTestSuite) SetupTest() {
	s.exec = new(executorMock)
	repo, err := NewSessionRepository(s.exec, "main.finance.chat_sessions", "main.finance.chat_turns")
	s.Require().NoError(err)
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return s.now }
	s.repo = repo
}

func (s *SessionRepositoryTestSuite) AssertExpectations() {
	s.exec.AssertExpectations(s.T())
}

func (s *SessionRepositoryTestSuite) TestInitializeCreatesDeltaTables() {
	s.exec.On("Execute", mock.Anything, mock.MatchedBy(func(stmt string) bool {
		return strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS main.finance.chat_sessions") &&
			strings.Contains(stmt, "USING DELTA")
	}), []Parameter(nil)).Return([]Row{}, nil).Once()
	s.exec.On("Execute", mock.Anything, mock.MatchedBy(func(stmt string) bool {
		return strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS main.finance.chat_turns")
	}), []Parameter(nil)).Return([]Row{}, nil).Once()

	s.Require().NoError(s.repo.Initialize(s.T().Context()))
	s.AssertExpectations()
}

func (s *SessionRepositoryTestSuite) TestSaveSessionBindsParameters() {
	s.exec.On("Execute", mock.Anything, mock.MatchedBy(func(stmt string) bool {
		return strings.Contains(stmt, "MERGE INTO main.finance.chat_sessions") &&
			strings.Contains(stmt, "COALESCE(:title, target.title)")
	}), mock.MatchedBy(func(params []Parameter) bool {
		sessionId, _ := paramValue(params, "session_id")
		state, _ := paramValue(params, "state")
		title, found := paramValue(params, "title")
		return sessionId == "s-1" && state == `{"turn_number":1}` && found && title == ""
	})).Return([]Row{}, nil).Once()

	err := s.repo.SaveSession(s.T().Context(), "s-1", "u-1", models.AgentState{"turn_number": 1}, nil)

	s.Require().NoError(err)
	s.AssertExpectations()
}

func (s *SessionRepositoryTestSuite) TestSaveSessionKeepsValuesOutOfStatement() {
	injection := "x'; DROP TABLE chat_sessions; --"
	s.exec.On("Execute", mock.Anything, mock.MatchedBy(func(stmt string) bool {
		return !strings.Contains(stmt, injection)
	}), mock.Anything).Return([]Row{}, nil).Once()

	err := s.repo.SaveSession(s.T().Context(), injection, "u-1", models.AgentState{}, &injection)

	s.Require().NoError(err)
	s.AssertExpectations()
}

func (s *SessionRepositoryTestSuite) TestGetSession() {
	s.exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return([]Row{row(map[string]string{
		"session_id": "s-1",
		"user_id":    "u-1",
		"title":      "Denials by region",
		"state":      `{"turn_number":2,"user_id":"u-1"}`,
		"created_at": "2025-03-01T09:00:00.000Z",
		"updated_at": "2025-03-01 09:30:00",
	})}, nil).Once()

	session, err := s.repo.GetSession(s.T().Context(), "s-1")

	s.Require().NoError(err)
	s.Equal("s-1", session.SessionId)
	s.Require().NotNil(session.Title)
	s.Equal("Denials by region", *session.Title)
	s.Equal(2, session.State.TurnNumber())
	s.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), session.CreatedAt)
	s.Equal(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), session.UpdatedAt)
	s.AssertExpectations()
}

func (s *SessionRepositoryTestSuite) TestGetSessionNotFound() {
	s.exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return([]Row{}, nil).Once()

	_, err := s.repo.GetSession(s.T().Context(), "missing")

	s.ErrorIs(err, models.NotFoundError)
	s.ErrorContains(err, "Session not found: missing")
}

func (s *SessionRepositoryTestSuite) TestListSessions() {
	s.exec.On("Execute", mock.Anything, mock.MatchedBy(func(stmt string) bool {
		return strings.Contains(stmt, "ORDER BY updated_at DESC") &&
			strings.Contains(stmt, "LIMIT 10 OFFSET 20")
	}), mock.Anything).Return([]Row{
		row(map[string]string{"session_id": "s-2", "user_id": "u-1", "updated_at": "2025-03-01T10:00:00Z"}),
		{"session_id": gjson.Result{Type: gjson.String, Str: "s-1"}, "title": gjson.Result{Type: gjson.Null}},
	}, nil).Once()

	sessions, err := s.repo.ListSessions(s.T().Context(), models.SessionListFilter{UserId: "u-1", Limit: 10, Offset: 20})

	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal("s-2", sessions[0].SessionId)
	s.Nil(sessions[1].Title)
}

func (s *SessionRepositoryTestSuite) TestCountSessions() {
	s.exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Return([]Row{row(map[string]string{"count": "7"})}, nil).Once()

	count, err := s.repo.CountSessions(s.T().Context(), "u-1")

	s.Require().NoError(err)
	s.Equal(7, count)
}

func (s *SessionRepositoryTestSuite) TestDeleteSessionDeletesTurnsFirst() {
	turns := s.exec.On("Execute", mock.Anything, "DELETE FROM main.finance.chat_turns WHERE session_id = :session_id", mock.Anything).
		Return([]Row{}, nil).Once()
	s.exec.On("Execute", mock.Anything, "DELETE FROM main.finance.chat_sessions WHERE session_id = :session_id", mock.Anything).
		Return([]Row{}, nil).Once().NotBefore(turns)

	s.Require().NoError(s.repo.DeleteSession(s.T().Context(), "s-1"))
	s.AssertExpectations()
}

func (s *SessionRepositoryTestSuite) TestGetTurns() {
	s.exec.On("Execute", mock.Anything, mock.MatchedBy(func(stmt string) bool {
		return strings.Contains(stmt, "ORDER BY turn_number ASC\nLIMIT 5")
	}), mock.Anything).Return([]Row{row(map[string]string{
		"session_id":     "s-1",
		"turn_number":    "1",
		"user_question":  "What is our denial rate?",
		"agent_response": "12%",
		"state_snapshot": `{"turn_number":1}`,
		"metadata":       `{"workflow":"placeholder"}`,
		"created_at":     "2025-03-01T09:00:00Z",
	})}, nil).Once()

	limit := 5
	turns, err := s.repo.GetTurns(s.T().Context(), "s-1", &limit)

	s.Require().NoError(err)
	s.Require().Len(turns, 1)
	s.Equal(1, turns[0].TurnNumber)
	s.Equal("placeholder", turns[0].Metadata["workflow"])
}

func (s *SessionRepositoryTestSuite) TestGetLatestTurnEmpty() {
	s.exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return([]Row{}, nil).Once()

	turn, err := s.repo.GetLatestTurn(s.T().Context(), "s-1")

	s.Require().NoError(err)
	s.Nil(turn)
}

func (s *SessionRepositoryTestSuite) TestHealthCheck() {
	s.exec.On("Execute", mock.Anything, "SELECT 1 AS health", []Parameter(nil)).
		Return([]Row{row(map[string]string{"health": "1"})}, nil).Once()
	s.NoError(s.repo.HealthCheck(s.T().Context()))

	s.exec.On("Execute", mock.Anything, "SELECT 1 AS health", []Parameter(nil)).
		Return(nil, errors.New("warehouse stopped")).Once()
	s.Error(s.repo.HealthCheck(s.T().Context()))
}

func TestSessionRepository(t *testing.T) {
	suite.Run(t, new(SessionRepositoryTestSuite))
}

func TestNewSessionRepositoryRejectsInvalidTableName(t *testing.T) {
	_, err := NewSessionRepository(new(executorMock), "chat_sessions; DROP", "chat_turns")
	require.Error(t, err)
}
