package repositories

import (
	"context"

	"github.com/healthfin/healthcare-api/models"
)

type StorageBackend string

const (
	StorageBackendPostgres   StorageBackend = "postgres"
	StorageBackendDatabricks StorageBackend = "databricks"
	StorageBackendMemory     StorageBackend = "memory"
)

func StorageBackendFrom(s string) (StorageBackend, bool) {
	switch b := StorageBackend(s); b {
	case StorageBackendPostgres, StorageBackendDatabricks, StorageBackendMemory:
		return b, true
	default:
		return "", false
	}
}

// SessionRepository persists chat sessions and their conversation turns.
// Every storage backend implements it.
type SessionRepository interface {
	// Initialize creates the storage tables when they are missing.
	Initialize(ctx context.Context) error
	Close() error

	// SaveSession creates or updates a session. A nil title leaves the stored title untouched.
	SaveSession(ctx context.Context, sessionId, userId string, state models.AgentState, title *string) error
	// GetSession returns a models.NotFoundError when the session does not exist.
	GetSession(ctx context.Context, sessionId string) (models.Session, error)
	// ListSessions returns the sessions of a user, most recently updated first.
	ListSessions(ctx context.Context, filter models.SessionListFilter) ([]models.SessionSummary, error)
	CountSessions(ctx context.Context, userId string) (int, error)
	// DeleteSession removes the session and all its turns.
	DeleteSession(ctx context.Context, sessionId string) error

	SaveTurn(ctx context.Context, turn models.TurnInput) error
	// GetTurns returns the turns in turn number order, at most limit when limit is set.
	GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error)
	// GetLatestTurn returns nil when the session has no turn.
	GetLatestTurn(ctx context.Context, sessionId string) (*models.Turn, error)

	HealthCheck(ctx context.Context) error
}
