package databricks

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"

	"github.com/healthfin/healthcare-api/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+){0,2}$`)

// StatementExecutor runs a SQL statement on a warehouse.
type StatementExecutor interface {
	Execute(ctx context.Context, statement string, params ...Parameter) ([]Row, error)
}

// SessionRepository stores sessions and turns in Delta tables of a Databricks SQL warehouse.
type SessionRepository struct {
	exec          StatementExecutor
	sessionsTable string
	turnsTable    string
	now           func() time.Time
}

func NewSessionRepository(exec StatementExecutor, sessionsTable, turnsTable string) (*SessionRepository, error) {
	for _, table := range []string{sessionsTable, turnsTable} {
		if !tableNamePattern.MatchString(table) {
			return nil, errors.Newf("invalid table name %q", table)
		}
	}
	return &SessionRepository{
		exec:          exec,
		sessionsTable: sessionsTable,
		turnsTable:    turnsTable,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (repo *SessionRepository) Initialize(ctx context.Context) error {
	createSessions := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session_id STRING NOT NULL,
	user_id STRING NOT NULL,
	title STRING,
	state STRING,
	created_at TIMESTAMP,
	updated_at TIMESTAMP
) USING DELTA`, repo.sessionsTable)

	createTurns := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session_id STRING NOT NULL,
	turn_number INT NOT NULL,
	user_question STRING,
	agent_response STRING,
	state_snapshot STRING,
	metadata STRING,
	created_at TIMESTAMP
) USING DELTA`, repo.turnsTable)

	if _, err := repo.exec.Execute(ctx, createSessions); err != nil {
		return errors.Wrapf(err, "could not create table %s", repo.sessionsTable)
	}
	if _, err := repo.exec.Execute(ctx, createTurns); err != nil {
		return errors.Wrapf(err, "could not create table %s", repo.turnsTable)
	}
	return nil
}

func (repo *SessionRepository) Close() error { return nil }

func (repo *SessionRepository) SaveSession(ctx context.Context, sessionId, userId string,
	state models.AgentState, title *string,
) error {
	stateJSON, err := marshalObject(state)
	if err != nil {
		return err
	}

	statement := fmt.Sprintf(`MERGE INTO %s AS target
USING (SELECT :session_id AS session_id) AS source
ON target.session_id = source.session_id
WHEN MATCHED THEN UPDATE SET
	state = :state,
	title = COALESCE(:title, target.title),
	updated_at = :now
WHEN NOT MATCHED THEN INSERT (session_id, user_id, title, state, created_at, updated_at)
	VALUES (:session_id, :user_id, :title, :state, :now, :now)`, repo.sessionsTable)

	_, err = repo.exec.Execute(ctx, statement,
		StringParam("session_id", sessionId),
		StringParam("user_id", userId),
		NullableStringParam("title", title),
		StringParam("state", stateJSON),
		TimestampParam("now", repo.now()),
	)
	return errors.Wrapf(err, "could not save session %s", sessionId)
}

func (repo *SessionRepository) GetSession(ctx context.Context, sessionId string) (models.Session, error) {
	rows, err := repo.exec.Execute(ctx,
		fmt.Sprintf(`SELECT session_id, user_id, title, state, created_at, updated_at
FROM %s WHERE session_id = :session_id`, repo.sessionsTable),
		StringParam("session_id", sessionId),
	)
	if err != nil {
		return models.Session{}, errors.Wrapf(err, "could not get session %s", sessionId)
	}
	if len(rows) == 0 {
		return models.Session{}, errors.Wrapf(models.NotFoundError, "Session not found: %s", sessionId)
	}

	row := rows[0]
	state, err := unmarshalObject(row["state"])
	if err != nil {
		return models.Session{}, errors.Wrapf(err, "invalid state for session %s", sessionId)
	}
	return models.Session{
		SessionId: row["session_id"].String(),
		UserId:    row["user_id"].String(),
		Title:     nullableString(row["title"]),
		State:     state,
		CreatedAt: parseTimestamp(row["created_at"]),
		UpdatedAt: parseTimestamp(row["updated_at"]),
	}, nil
}

func (repo *SessionRepository) ListSessions(ctx context.Context, filter models.SessionListFilter) ([]models.SessionSummary, error) {
	// LIMIT and OFFSET take integer literals, formatted from ints
	rows, err := repo.exec.Execute(ctx,
		fmt.Sprintf(`SELECT session_id, user_id, title, created_at, updated_at
FROM %s WHERE user_id = :user_id
ORDER BY updated_at DESC
LIMIT %d OFFSET %d`, repo.sessionsTable, filter.Limit, filter.Offset),
		StringParam("user_id", filter.UserId),
	)
	if err != nil {
		return nil, errors.Wrap(err, "could not list sessions")
	}

	sessions := make([]models.SessionSummary, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, models.SessionSummary{
			SessionId: row["session_id"].String(),
			UserId:    row["user_id"].String(),
			Title:     nullableString(row["title"]),
			CreatedAt: parseTimestamp(row["created_at"]),
			UpdatedAt: parseTimestamp(row["updated_at"]),
		})
	}
	return sessions, nil
}

func (repo *SessionRepository) CountSessions(ctx context.Context, userId string) (int, error) {
	rows, err := repo.exec.Execute(ctx,
		fmt.Sprintf("SELECT COUNT(*) AS count FROM %s WHERE user_id = :user_id", repo.sessionsTable),
		StringParam("user_id", userId),
	)
	if err != nil {
		return 0, errors.Wrap(err, "could not count sessions")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(rows[0]["count"].Int()), nil
}

func (repo *SessionRepository) DeleteSession(ctx context.Context, sessionId string) error {
	param := StringParam("session_id", sessionId)
	if _, err := repo.exec.Execute(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE session_id = :session_id", repo.turnsTable), param,
	); err != nil {
		return errors.Wrapf(err, "could not delete turns of session %s", sessionId)
	}
	if _, err := repo.exec.Execute(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE session_id = :session_id", repo.sessionsTable), param,
	); err != nil {
		return errors.Wrapf(err, "could not delete session %s", sessionId)
	}
	return nil
}

func (repo *SessionRepository) SaveTurn(ctx context.Context, turn models.TurnInput) error {
	snapshot, err := marshalObject(turn.StateSnapshot)
	if err != nil {
		return err
	}
	metadata, err := marshalObject(turn.Metadata)
	if err != nil {
		return err
	}

	statement := fmt.Sprintf(`MERGE INTO %s AS target
USING (SELECT :session_id AS session_id, :turn_number AS turn_number) AS source
ON target.session_id = source.session_id AND target.turn_number = source.turn_number
WHEN MATCHED THEN UPDATE SET
	user_question = :user_question,
	agent_response = :agent_response,
	state_snapshot = :state_snapshot,
	metadata = :metadata
WHEN NOT MATCHED THEN INSERT (session_id, turn_number, user_question, agent_response, state_snapshot, metadata, created_at)
	VALUES (:session_id, :turn_number, :user_question, :agent_response, :state_snapshot, :metadata, :now)`,
		repo.turnsTable)

	_, err = repo.exec.Execute(ctx, statement,
		StringParam("session_id", turn.SessionId),
		IntParam("turn_number", turn.TurnNumber),
		StringParam("user_question", turn.UserQuestion),
		StringParam("agent_response", turn.AgentResponse),
		StringParam("state_snapshot", snapshot),
		StringParam("metadata", metadata),
		TimestampParam("now", repo.now()),
	)
	return errors.Wrapf(err, "could not save turn %d of session %s", turn.TurnNumber, turn.SessionId)
}

func (repo *SessionRepository) GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error) {
	statement := fmt.Sprintf(`SELECT session_id, turn_number, user_question, agent_response, state_snapshot, metadata, created_at
FROM %s WHERE session_id = :session_id
ORDER BY turn_number ASC`, repo.turnsTable)
	if limit != nil {
		statement += fmt.Sprintf("\nLIMIT %d", *limit)
	}

	rows, err := repo.exec.Execute(ctx, statement, StringParam("session_id", sessionId))
	if err != nil {
		return nil, errors.Wrapf(err, "could not get turns of session %s", sessionId)
	}
	return adaptTurns(rows)
}

func (repo *SessionRepository) GetLatestTurn(ctx context.Context, sessionId string) (*models.Turn, error) {
	rows, err := repo.exec.Execute(ctx,
		fmt.Sprintf(`SELECT session_id, turn_number, user_question, agent_response, state_snapshot, metadata, created_at
FROM %s WHERE session_id = :session_id
ORDER BY turn_number DESC
LIMIT 1`, repo.turnsTable),
		StringParam("session_id", sessionId),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get latest turn of session %s", sessionId)
	}
	turns, err := adaptTurns(rows)
	if err != nil || len(turns) == 0 {
		return nil, err
	}
	return &turns[0], nil
}

func (repo *SessionRepository) HealthCheck(ctx context.Context) error {
	rows, err := repo.exec.Execute(ctx, "SELECT 1 AS health")
	if err != nil {
		return err
	}
	if len(rows) == 0 || rows[0]["health"].String() != "1" {
		return errors.New("unexpected health check result")
	}
	return nil
}

func adaptTurns(rows []Row) ([]models.Turn, error) {
	turns := make([]models.Turn, 0, len(rows))
	for _, row := range rows {
		turnNumber, err := strconv.Atoi(row["turn_number"].String())
		if err != nil {
			return nil, errors.Wrapf(err, "invalid turn number %q", row["turn_number"].String())
		}
		snapshot, err := unmarshalObject(row["state_snapshot"])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid state snapshot for turn %d", turnNumber)
		}
		metadata, err := unmarshalObject(row["metadata"])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid metadata for turn %d", turnNumber)
		}
		turns = append(turns, models.Turn{
			SessionId:     row["session_id"].String(),
			TurnNumber:    turnNumber,
			UserQuestion:  row["user_question"].String(),
			AgentResponse: row["agent_response"].String(),
			StateSnapshot: snapshot,
			Metadata:      metadata,
			CreatedAt:     parseTimestamp(row["created_at"]),
		})
	}
	return turns, nil
}

func marshalObject[M ~map[string]any](obj M) (string, error) {
	if obj == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return "", errors.Wrap(err, "could not encode json object")
	}
	return string(raw), nil
}

// JSON objects are stored as STRING columns, so the cell holds the encoded text.
func unmarshalObject(cell gjson.Result) (map[string]any, error) {
	out := map[string]any{}
	if cell.Type == gjson.Null || cell.String() == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(cell.String()), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func nullableString(cell gjson.Result) *string {
	if !cell.Exists() || cell.Type == gjson.Null {
		return nil
	}
	s := cell.String()
	return &s
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(cell gjson.Result) time.Time {
	s := cell.String()
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
