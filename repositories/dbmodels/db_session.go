package dbmodels

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"github.com/healthfin/healthcare-api/models"
)

const TABLE_CHAT_SESSIONS = "chat_sessions"

type DBSession struct {
	SessionId string      `db:"session_id"`
	UserId    string      `db:"user_id"`
	Title     null.String `db:"title"`
	State     []byte      `db:"state"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type DBSessionSummary struct {
	SessionId string      `db:"session_id"`
	UserId    string      `db:"user_id"`
	Title     null.String `db:"title"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

var (
	SelectSessionColumn        = []string{"session_id", "user_id", "title", "state", "created_at", "updated_at"}
	SelectSessionSummaryColumn = []string{"session_id", "user_id", "title", "created_at", "updated_at"}
)

func AdaptSession(db DBSession) (models.Session, error) {
	state, err := UnmarshalJSONObject(db.State)
	if err != nil {
		return models.Session{}, errors.Wrapf(err, "invalid state for session %s", db.SessionId)
	}
	return models.Session{
		SessionId: db.SessionId,
		UserId:    db.UserId,
		Title:     db.Title.Ptr(),
		State:     state,
		CreatedAt: db.CreatedAt,
		UpdatedAt: db.UpdatedAt,
	}, nil
}

func AdaptSessionSummary(db DBSessionSummary) (models.SessionSummary, error) {
	return models.SessionSummary{
		SessionId: db.SessionId,
		UserId:    db.UserId,
		Title:     db.Title.Ptr(),
		CreatedAt: db.CreatedAt,
		UpdatedAt: db.UpdatedAt,
	}, nil
}

// UnmarshalJSONObject decodes a stored JSON object, an empty column yields an empty object.
func UnmarshalJSONObject(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func MarshalJSONObject(obj map[string]any) ([]byte, error) {
	if obj == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(obj)
}
