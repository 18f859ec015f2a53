package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/healthfin/healthcare-api/dto"
	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/usecases"
	"github.com/healthfin/healthcare-api/utils"
)

func newUpgrader(ctx context.Context, conf Configuration) websocket.Upgrader {
	origins := allowedOrigins(ctx, conf)

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if conf.IsDevelopment() {
				return true
			}
			origin := r.Header.Get("Origin")
			// non browser clients
			if origin == "" {
				return true
			}
			return slices.Contains(origins, origin)
		},
	}
}

func newMessageLimiter(conf Configuration) *rate.Limiter {
	if conf.WsMessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := conf.WsMessagesBurst
	if burst <= 0 {
		burst = max(1, int(conf.WsMessagesPerSecond))
	}
	return rate.NewLimiter(rate.Limit(conf.WsMessagesPerSecond), burst)
}

// handleChat serves /ws/chat and /ws/chat/:session_id. On the latter the
// session is fixed by the path and its history is sent on connect.
func handleChat(uc usecases.Usecases, connections *ConnectionManager, upgrader websocket.Upgrader, conf Configuration) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := utils.LoggerFromContext(ctx)

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader already answered the client
			logger.InfoContext(ctx, "websocket upgrade failed", "error", err.Error())
			return
		}
		conn := newChatConnection(ws)
		defer conn.Close()

		utils.MetricActiveWebsockets.Inc()
		defer utils.MetricActiveWebsockets.Dec()

		registered := []string{}
		register := func(sessionId string) {
			if !slices.Contains(registered, sessionId) {
				registered = append(registered, sessionId)
			}
			connections.Register(sessionId, conn)
		}
		defer func() {
			for _, sessionId := range registered {
				connections.Unregister(sessionId, conn)
			}
			logger.DebugContext(ctx, "chat client disconnected", "sessions", registered)
		}()

		usecase := uc.NewChatUsecase()
		send := func(ctx context.Context, msg models.ChatMessage) error {
			return conn.Send(ctx, msg)
		}

		pathSessionId := c.Param("session_id")
		if pathSessionId != "" {
			register(pathSessionId)
			if history := usecase.ResumeSession(ctx, pathSessionId); history != nil {
				if err := send(ctx, *history); err != nil {
					return
				}
			}
		}

		limiter := newMessageLimiter(conf)
		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.InfoContext(ctx, "chat connection closed", "error", err.Error())
				}
				return
			}

			if !limiter.Allow() {
				if err := send(ctx, chatError(models.ErrRateLimited)); err != nil {
					return
				}
				continue
			}

			var msg dto.ChatIncomingMessageDto
			if err := json.Unmarshal(payload, &msg); err != nil {
				if err := send(ctx, models.ChatMessage{Type: models.ChatMessageError, Error: "Invalid JSON message"}); err != nil {
					return
				}
				continue
			}
			if err := dto.ValidateChatMessage(msg); err != nil {
				if err := send(ctx, chatError(err)); err != nil {
					return
				}
				continue
			}

			switch msg.MessageType() {
			case dto.ChatIncomingPing:
				if err := send(ctx, models.ChatMessage{Type: models.ChatMessagePong}); err != nil {
					return
				}

			case dto.ChatIncomingMessage:
				req := msg.Request()
				if pathSessionId != "" {
					req.SessionId = pathSessionId
					req.ResumedSession = true
				}
				if req.SessionId == "" {
					req.SessionId = uuid.NewString()
				}
				register(req.SessionId)

				if _, err := usecase.ProcessQuestion(ctx, req, send); err != nil {
					logger.InfoContext(ctx, "chat client went away while answering", "error", err.Error())
					return
				}

			default:
				logger.DebugContext(ctx, "ignoring chat message", "type", msg.Type)
			}
		}
	}
}

func chatError(err error) models.ChatMessage {
	return models.ChatMessage{Type: models.ChatMessageError, Error: models.PublicMessage(err)}
}
