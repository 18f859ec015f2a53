package dbmodels

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/healthfin/healthcare-api/models"
)

const TABLE_CHAT_TURNS = "chat_turns"

type DBTurn struct {
	SessionId     string    `db:"session_id"`
	TurnNumber    int32     `db:"turn_number"`
	UserQuestion  string    `db:"user_question"`
	AgentResponse string    `db:"agent_response"`
	StateSnapshot []byte    `db:"state_snapshot"`
	Metadata      []byte    `db:"metadata"`
	CreatedAt     time.Time `db:"created_at"`
}

var SelectTurnColumn = []string{
	"session_id", "turn_number", "user_question", "agent_response",
	"state_snapshot", "metadata", "created_at",
}

func AdaptTurn(db DBTurn) (models.Turn, error) {
	snapshot, err := UnmarshalJSONObject(db.StateSnapshot)
	if err != nil {
		return models.Turn{}, errors.Wrapf(err, "invalid state snapshot for turn %d", db.TurnNumber)
	}
	metadata, err := UnmarshalJSONObject(db.Metadata)
	if err != nil {
		return models.Turn{}, errors.Wrapf(err, "invalid metadata for turn %d", db.TurnNumber)
	}
	return models.Turn{
		SessionId:     db.SessionId,
		TurnNumber:    int(db.TurnNumber),
		UserQuestion:  db.UserQuestion,
		AgentResponse: db.AgentResponse,
		StateSnapshot: snapshot,
		Metadata:      metadata,
		CreatedAt:     db.CreatedAt,
	}, nil
}
