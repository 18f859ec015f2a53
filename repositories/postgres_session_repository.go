package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/repositories/dbmodels"
)

type PostgresSessionRepository struct {
	pool PgPool
	now  func() time.Time
}

func NewPostgresSessionRepository(pool PgPool) *PostgresSessionRepository {
	return &PostgresSessionRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Tables are created by the goose migrations, this only checks that they are reachable.
func (repo *PostgresSessionRepository) Initialize(ctx context.Context) error {
	_, err := ExecBuilder(ctx, repo.pool, NewQueryBuilder().
		Select("1").
		From(dbmodels.TABLE_CHAT_SESSIONS).
		Limit(1))
	if IsUndefinedTableError(err) {
		return errors.Wrap(err, "chat sessions table is missing, run the migrations")
	}
	return errors.Wrap(err, "chat sessions table is not reachable")
}

func (repo *PostgresSessionRepository) Close() error {
	repo.pool.Close()
	return nil
}

func (repo *PostgresSessionRepository) SaveSession(ctx context.Context, sessionId, userId string,
	state models.AgentState, title *string,
) error {
	rawState, err := dbmodels.MarshalJSONObject(state)
	if err != nil {
		return errors.Wrap(err, "could not serialize session state")
	}
	now := repo.now()

	query := NewQueryBuilder().
		Insert(dbmodels.TABLE_CHAT_SESSIONS).
		Columns("session_id", "user_id", "title", "state", "created_at", "updated_at").
		Values(sessionId, userId, null.StringFromPtr(title), rawState, now, now).
		Suffix(fmt.Sprintf(`ON CONFLICT (session_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at,
			title = COALESCE(EXCLUDED.title, %s.title)`, dbmodels.TABLE_CHAT_SESSIONS))

	_, err = ExecBuilder(ctx, repo.pool, query)
	return err
}

func (repo *PostgresSessionRepository) GetSession(ctx context.Context, sessionId string) (models.Session, error) {
	query := NewQueryBuilder().
		Select(dbmodels.SelectSessionColumn...).
		From(dbmodels.TABLE_CHAT_SESSIONS).
		Where(squirrel.Eq{"session_id": sessionId})

	session, err := SqlToModel(ctx, repo.pool, query, dbmodels.AdaptSession)
	if errors.Is(err, models.NotFoundError) {
		return models.Session{}, errors.Wrapf(models.NotFoundError, "Session not found: %s", sessionId)
	}
	return session, err
}

func (repo *PostgresSessionRepository) ListSessions(ctx context.Context, filter models.SessionListFilter) ([]models.SessionSummary, error) {
	query := NewQueryBuilder().
		Select(dbmodels.SelectSessionSummaryColumn...).
		From(dbmodels.TABLE_CHAT_SESSIONS).
		Where(squirrel.Eq{"user_id": filter.UserId}).
		OrderBy("updated_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	return SqlToListOfModels(ctx, repo.pool, query, dbmodels.AdaptSessionSummary)
}

func (repo *PostgresSessionRepository) CountSessions(ctx context.Context, userId string) (int, error) {
	sql, args, err := NewQueryBuilder().
		Select("COUNT(*)").
		From(dbmodels.TABLE_CHAT_SESSIONS).
		Where(squirrel.Eq{"user_id": userId}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "can't build sql query")
	}

	var count int64
	if err := repo.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error counting sessions")
	}
	return int(count), nil
}

func (repo *PostgresSessionRepository) DeleteSession(ctx context.Context, sessionId string) error {
	tx, err := repo.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "could not start transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := ExecBuilder(ctx, tx, NewQueryBuilder().
		Delete(dbmodels.TABLE_CHAT_TURNS).
		Where(squirrel.Eq{"session_id": sessionId})); err != nil {
		return err
	}
	if _, err := ExecBuilder(ctx, tx, NewQueryBuilder().
		Delete(dbmodels.TABLE_CHAT_SESSIONS).
		Where(squirrel.Eq{"session_id": sessionId})); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(ctx), "could not commit session deletion")
}

func (repo *PostgresSessionRepository) SaveTurn(ctx context.Context, turn models.TurnInput) error {
	snapshot, err := dbmodels.MarshalJSONObject(turn.StateSnapshot)
	if err != nil {
		return errors.Wrap(err, "could not serialize state snapshot")
	}
	metadata, err := dbmodels.MarshalJSONObject(turn.Metadata)
	if err != nil {
		return errors.Wrap(err, "could not serialize turn metadata")
	}

	query := NewQueryBuilder().
		Insert(dbmodels.TABLE_CHAT_TURNS).
		Columns("session_id", "turn_number", "user_question", "agent_response",
			"state_snapshot", "metadata", "created_at").
		Values(turn.SessionId, turn.TurnNumber, turn.UserQuestion, turn.AgentResponse,
			snapshot, metadata, repo.now()).
		Suffix(`ON CONFLICT (session_id, turn_number) DO UPDATE SET
			user_question = EXCLUDED.user_question,
			agent_response = EXCLUDED.agent_response,
			state_snapshot = EXCLUDED.state_snapshot,
			metadata = EXCLUDED.metadata`)

	_, err = ExecBuilder(ctx, repo.pool, query)
	return err
}

func (repo *PostgresSessionRepository) GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error) {
	query := NewQueryBuilder().
		Select(dbmodels.SelectTurnColumn...).
		From(dbmodels.TABLE_CHAT_TURNS).
		Where(squirrel.Eq{"session_id": sessionId}).
		OrderBy("turn_number ASC")
	if limit != nil {
		query = query.Limit(uint64(*limit))
	}

	return SqlToListOfModels(ctx, repo.pool, query, dbmodels.AdaptTurn)
}

func (repo *PostgresSessionRepository) GetLatestTurn(ctx context.Context, sessionId string) (*models.Turn, error) {
	query := NewQueryBuilder().
		Select(dbmodels.SelectTurnColumn...).
		From(dbmodels.TABLE_CHAT_TURNS).
		Where(squirrel.Eq{"session_id": sessionId}).
		OrderBy("turn_number DESC").
		Limit(1)

	return SqlToOptionalModel(ctx, repo.pool, query, dbmodels.AdaptTurn)
}

func (repo *PostgresSessionRepository) HealthCheck(ctx context.Context) error {
	var result int
	if err := repo.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return errors.Wrap(err, "postgres liveness query failed")
	}
	return nil
}
