package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthfin/healthcare-api/models"
)

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get keeps the first title", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		title := "What drives denials?"

		require.NoError(t, repo.SaveSession(ctx, "s-1", "u-1", models.AgentState{"turn_number": 1}, &title))
		require.NoError(t, repo.SaveSession(ctx, "s-1", "u-1", models.AgentState{"turn_number": 2}, nil))

		session, err := repo.GetSession(ctx, "s-1")
		require.NoError(t, err)
		require.NotNil(t, session.Title)
		assert.Equal(t, title, *session.Title)
		assert.Equal(t, 2, session.State.TurnNumber())
	})

	t.Run("returned state is a copy", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		state := models.AgentState{"errors": []any{}}
		require.NoError(t, repo.SaveSession(ctx, "s-1", "u-1", state, nil))
		state["errors"] = []any{"mutated"}

		session, err := repo.GetSession(ctx, "s-1")
		require.NoError(t, err)
		session.State["user_id"] = "other"

		again, err := repo.GetSession(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, []any{}, again.State["errors"])
		assert.NotContains(t, again.State, "user_id")
	})

	t.Run("returned turns are copies", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		require.NoError(t, repo.SaveTurn(ctx, models.TurnInput{
			SessionId:     "s-1",
			TurnNumber:    1,
			StateSnapshot: models.AgentState{"question_type": "analysis"},
			Metadata:      map[string]any{"workflow": "llm"},
		}))

		turns, err := repo.GetTurns(ctx, "s-1", nil)
		require.NoError(t, err)
		turns[0].StateSnapshot["question_type"] = "greeting"
		turns[0].Metadata["workflow"] = "placeholder"

		latest, err := repo.GetLatestTurn(ctx, "s-1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "analysis", latest.StateSnapshot["question_type"])
		assert.Equal(t, "llm", latest.Metadata["workflow"])
		latest.Metadata["extra"] = true

		again, err := repo.GetTurns(ctx, "s-1", nil)
		require.NoError(t, err)
		assert.Equal(t, models.AgentState{"question_type": "analysis"}, again[0].StateSnapshot)
		assert.Equal(t, map[string]any{"workflow": "llm"}, again[0].Metadata)
	})

	t.Run("missing session", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		_, err := repo.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, models.NotFoundError)
	})

	t.Run("list is ordered and paginated", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		repo.now = func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}
		for i := 1; i <= 5; i++ {
			require.NoError(t, repo.SaveSession(ctx, fmt.Sprintf("s-%d", i), "u-1", nil, nil))
		}
		require.NoError(t, repo.SaveSession(ctx, "other", "u-2", nil, nil))

		page, err := repo.ListSessions(ctx, models.SessionListFilter{UserId: "u-1", Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "s-4", page[0].SessionId)
		assert.Equal(t, "s-3", page[1].SessionId)

		empty, err := repo.ListSessions(ctx, models.SessionListFilter{UserId: "u-1", Limit: 2, Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, empty)

		count, err := repo.CountSessions(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("turns are ordered, idempotent and deleted with the session", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		require.NoError(t, repo.SaveSession(ctx, "s-1", "u-1", nil, nil))
		for _, n := range []int{2, 1, 3} {
			require.NoError(t, repo.SaveTurn(ctx, models.TurnInput{SessionId: "s-1", TurnNumber: n, UserQuestion: fmt.Sprintf("q%d", n)}))
		}
		require.NoError(t, repo.SaveTurn(ctx, models.TurnInput{SessionId: "s-1", TurnNumber: 3, UserQuestion: "q3 bis"}))

		turns, err := repo.GetTurns(ctx, "s-1", nil)
		require.NoError(t, err)
		require.Len(t, turns, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{turns[0].TurnNumber, turns[1].TurnNumber, turns[2].TurnNumber})

		limit := 2
		limited, err := repo.GetTurns(ctx, "s-1", &limit)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		latest, err := repo.GetLatestTurn(ctx, "s-1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "q3 bis", latest.UserQuestion)

		require.NoError(t, repo.DeleteSession(ctx, "s-1"))
		_, err = repo.GetSession(ctx, "s-1")
		assert.ErrorIs(t, err, models.NotFoundError)
		latest, err = repo.GetLatestTurn(ctx, "s-1")
		require.NoError(t, err)
		assert.Nil(t, latest)
	})
}
