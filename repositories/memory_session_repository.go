package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/copystructure"

	"github.com/healthfin/healthcare-api/models"
)

// MemorySessionRepository keeps sessions in process memory. It is meant for local
// development and tests: nothing survives a restart.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	turns    map[string][]models.Turn
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]models.Session),
		turns:    make(map[string][]models.Turn),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (repo *MemorySessionRepository) Initialize(ctx context.Context) error { return nil }

func (repo *MemorySessionRepository) Close() error { return nil }

func (repo *MemorySessionRepository) SaveSession(ctx context.Context, sessionId, userId string,
	state models.AgentState, title *string,
) error {
	stateCopy, err := copyObject(state)
	if err != nil {
		return err
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	now := repo.now()
	session, ok := repo.sessions[sessionId]
	if !ok {
		session = models.Session{
			SessionId: sessionId,
			UserId:    userId,
			CreatedAt: now,
		}
	}
	session.State = stateCopy
	session.UpdatedAt = now
	if title != nil {
		t := *title
		session.Title = &t
	}
	repo.sessions[sessionId] = session
	return nil
}

func (repo *MemorySessionRepository) GetSession(ctx context.Context, sessionId string) (models.Session, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	session, ok := repo.sessions[sessionId]
	if !ok {
		return models.Session{}, errors.Wrapf(models.NotFoundError, "Session not found: %s", sessionId)
	}
	state, err := copyObject(session.State)
	if err != nil {
		return models.Session{}, err
	}
	session.State = state
	return session, nil
}

func (repo *MemorySessionRepository) ListSessions(ctx context.Context, filter models.SessionListFilter) ([]models.SessionSummary, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	summaries := make([]models.SessionSummary, 0)
	for _, s := range repo.sessions {
		if s.UserId != filter.UserId {
			continue
		}
		summaries = append(summaries, models.SessionSummary{
			SessionId: s.SessionId,
			UserId:    s.UserId,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].SessionId < summaries[j].SessionId
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	if filter.Offset >= len(summaries) {
		return []models.SessionSummary{}, nil
	}
	end := len(summaries)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return summaries[filter.Offset:end], nil
}

func (repo *MemorySessionRepository) CountSessions(ctx context.Context, userId string) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	count := 0
	for _, s := range repo.sessions {
		if s.UserId == userId {
			count++
		}
	}
	return count, nil
}

func (repo *MemorySessionRepository) DeleteSession(ctx context.Context, sessionId string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.turns, sessionId)
	delete(repo.sessions, sessionId)
	return nil
}

func (repo *MemorySessionRepository) SaveTurn(ctx context.Context, input models.TurnInput) error {
	snapshot, err := copyObject(input.StateSnapshot)
	if err != nil {
		return err
	}
	metadata, err := copyObject(input.Metadata)
	if err != nil {
		return err
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	turn := models.Turn{
		SessionId:     input.SessionId,
		TurnNumber:    input.TurnNumber,
		UserQuestion:  input.UserQuestion,
		AgentResponse: input.AgentResponse,
		StateSnapshot: snapshot,
		Metadata:      metadata,
		CreatedAt:     repo.now(),
	}

	turns := repo.turns[input.SessionId]
	for i := range turns {
		if turns[i].TurnNumber == input.TurnNumber {
			turns[i] = turn
			return nil
		}
	}
	turns = append(turns, turn)
	sort.Slice(turns, func(i, j int) bool { return turns[i].TurnNumber < turns[j].TurnNumber })
	repo.turns[input.SessionId] = turns
	return nil
}

func (repo *MemorySessionRepository) GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	turns := repo.turns[sessionId]
	if limit != nil && *limit < len(turns) {
		turns = turns[:*limit]
	}
	out := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		turn, err := copyTurn(t)
		if err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	return out, nil
}

func (repo *MemorySessionRepository) GetLatestTurn(ctx context.Context, sessionId string) (*models.Turn, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	turns := repo.turns[sessionId]
	if len(turns) == 0 {
		return nil, nil
	}
	latest, err := copyTurn(turns[len(turns)-1])
	if err != nil {
		return nil, err
	}
	return &latest, nil
}

func copyTurn(turn models.Turn) (models.Turn, error) {
	snapshot, err := copyObject(turn.StateSnapshot)
	if err != nil {
		return models.Turn{}, err
	}
	metadata, err := copyObject(turn.Metadata)
	if err != nil {
		return models.Turn{}, err
	}
	turn.StateSnapshot = snapshot
	turn.Metadata = metadata
	return turn, nil
}

func (repo *MemorySessionRepository) HealthCheck(ctx context.Context) error { return nil }

func copyObject[M ~map[string]any](in M) (M, error) {
	if in == nil {
		return M{}, nil
	}
	out, err := copystructure.Copy(in)
	if err != nil {
		return nil, errors.Wrap(err, "could not copy state")
	}
	return out.(M), nil
}
