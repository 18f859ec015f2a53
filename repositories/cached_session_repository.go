package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/healthfin/healthcare-api/models"
)

// CachedSessionRepository serves GetSession from an expirable LRU in front of a
// backend. Writes go through to the backend and evict the cached entry.
type CachedSessionRepository struct {
	SessionRepository
	cache *expirable.LRU[string, models.Session]

	// A backend read only fills the cache when no write on the same session
	// completed while it was in flight.
	mu            sync.Mutex
	generation    uint64
	lastWrite     map[string]uint64
	readsInFlight int
}

func NewCachedSessionRepository(backend SessionRepository, size int, ttl time.Duration) *CachedSessionRepository {
	return &CachedSessionRepository{
		SessionRepository: backend,
		cache:             expirable.NewLRU[string, models.Session](size, nil, ttl),
		lastWrite:         make(map[string]uint64),
	}
}

func (repo *CachedSessionRepository) GetSession(ctx context.Context, sessionId string) (models.Session, error) {
	if session, ok := repo.cache.Get(sessionId); ok {
		state, err := copyObject(session.State)
		if err != nil {
			return models.Session{}, err
		}
		session.State = state
		return session, nil
	}

	repo.mu.Lock()
	start := repo.generation
	repo.readsInFlight++
	repo.mu.Unlock()

	session, err := repo.SessionRepository.GetSession(ctx, sessionId)

	var cached models.Session
	if err == nil {
		cached = session
		cached.State, err = copyObject(session.State)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.readsInFlight--
	if err == nil && repo.lastWrite[sessionId] <= start {
		repo.cache.Add(sessionId, cached)
	}
	if repo.readsInFlight == 0 {
		clear(repo.lastWrite)
	}

	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (repo *CachedSessionRepository) invalidate(sessionId string) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.generation++
	if repo.readsInFlight > 0 {
		repo.lastWrite[sessionId] = repo.generation
	}
	repo.cache.Remove(sessionId)
}

func (repo *CachedSessionRepository) SaveSession(ctx context.Context, sessionId, userId string,
	state models.AgentState, title *string,
) error {
	defer repo.invalidate(sessionId)
	return repo.SessionRepository.SaveSession(ctx, sessionId, userId, state, title)
}

func (repo *CachedSessionRepository) DeleteSession(ctx context.Context, sessionId string) error {
	defer repo.invalidate(sessionId)
	return repo.SessionRepository.DeleteSession(ctx, sessionId)
}
