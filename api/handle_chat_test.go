package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/usecases/workflow"
)

func dialChat(t *testing.T, serverUrl, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverUrl, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) gjson.Result {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	return gjson.ParseBytes(payload)
}

// readUntil collects frames up to and including the first one of the given type.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) []gjson.Result {
	t.Helper()
	frames := []gjson.Result{}
	for {
		frame := readFrame(t, conn)
		frames = append(frames, frame)
		if frame.Get("type").String() == frameType {
			return frames
		}
	}
}

func TestChatPlaceholderConversation(t *testing.T) {
	repo := repositories.NewMemorySessionRepository()
	ts := newTestServer(t, repo, workflow.NewPlaceholderWorkflow())
	conn := dialChat(t, ts.URL, "/ws/chat")
	question := faker.Sentence()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "message",
		"user_id":  "u1",
		"question": question,
	}))
	frames := readUntil(t, conn, "complete")

	assert.Equal(t, "status", frames[0].Get("type").String())
	assert.Equal(t, "processing", frames[0].Get("status").String())
	assert.Equal(t, "started", frames[1].Get("status").String())

	var streamed strings.Builder
	var sawDone bool
	for _, f := range frames {
		if f.Get("type").String() != "stream" {
			continue
		}
		assert.True(t, f.Get("done").Exists())
		streamed.WriteString(f.Get("token").String())
		sawDone = sawDone || f.Get("done").Bool()
	}
	assert.True(t, sawDone)
	assert.Equal(t, workflow.PlaceholderResponse(question), strings.TrimSpace(streamed.String()))

	complete := frames[len(frames)-1]
	sessionId := complete.Get("session_id").String()
	assert.NotEmpty(t, sessionId)
	assert.Equal(t, int64(1), complete.Get("turn_number").Int())
	assert.Equal(t, "placeholder", complete.Get("metadata.mode").String())
	assert.Equal(t, workflow.PlaceholderResponse(question), complete.Get("response").String())

	session, err := repo.GetSession(context.Background(), sessionId)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserId)
	require.NotNil(t, session.Title)
	assert.Equal(t, models.SessionTitle(question), *session.Title)
	assert.Equal(t, 1, session.State.TurnNumber())

	// same session, second turn
	require.NoError(t, conn.WriteJSON(map[string]any{"session_id": sessionId, "question": "And by region?"}))
	frames = readUntil(t, conn, "complete")
	assert.Equal(t, int64(2), frames[len(frames)-1].Get("turn_number").Int())

	turns, err := repo.GetTurns(context.Background(), sessionId, nil)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
	session, err = repo.GetSession(context.Background(), sessionId)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserId)
	assert.Equal(t, models.SessionTitle(question), *session.Title)
	// a message without user id on /ws/chat is anonymous, the stored owner is not reused
	assert.Equal(t, models.AnonymousUserId, session.State.String(models.StateKeyUserId))
}

func TestChatProtocolErrors(t *testing.T) {
	ts := newTestServer(t, repositories.NewMemorySessionRepository(), workflow.NewPlaceholderWorkflow())
	conn := dialChat(t, ts.URL, "/ws/chat")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Get("type").String())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "message", "question": "   "}))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Get("type").String())
	assert.Equal(t, "Question cannot be empty", frame.Get("error").String())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "error", readFrame(t, conn).Get("type").String())

	// the connection survives all of the above
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Get("type").String())
}

func TestChatResumeSession(t *testing.T) {
	repo := seededRepository(t)
	ts := newTestServer(t, repo, workflow.NewPlaceholderWorkflow())
	conn := dialChat(t, ts.URL, "/ws/chat/s1")

	history := readFrame(t, conn)
	assert.Equal(t, "history", history.Get("type").String())
	assert.Equal(t, "s1", history.Get("session_id").String())
	assert.Equal(t, int64(2), history.Get("turns.#").Int())
	assert.Equal(t, "Denials by payer", history.Get("turns.0.question").String())

	// the stored owner is used when the message has none
	require.NoError(t, conn.WriteJSON(map[string]any{"question": "What about Q3?", "session_id": "ignored"}))
	frames := readUntil(t, conn, "complete")
	complete := frames[len(frames)-1]
	assert.Equal(t, "s1", complete.Get("session_id").String())
	assert.Equal(t, int64(3), complete.Get("turn_number").Int())

	session, err := repo.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.State.String(models.StateKeyUserId))
}

func TestChatUnknownSessionHasNoHistory(t *testing.T) {
	ts := newTestServer(t, repositories.NewMemorySessionRepository(), workflow.NewPlaceholderWorkflow())
	conn := dialChat(t, ts.URL, "/ws/chat/new-session")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Get("type").String())
}

func TestChatRateLimit(t *testing.T) {
	ts := newTestServer(t, repositories.NewMemorySessionRepository(), workflow.NewPlaceholderWorkflow(),
		func(conf *Configuration) {
			conf.WsMessagesPerSecond = 0.001
			conf.WsMessagesBurst = 1
		})
	conn := dialChat(t, ts.URL, "/ws/chat")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Get("type").String())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Get("type").String())
	assert.Equal(t, "Too many messages, slow down", frame.Get("error").String())
}

func TestChatRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t, repositories.NewMemorySessionRepository(), workflow.NewPlaceholderWorkflow())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
