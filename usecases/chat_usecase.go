package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/usecases/workflow"
	"github.com/healthfin/healthcare-api/utils"
)

// ChatMessageSender delivers a message to the client. An error means the
// client is gone and processing should stop.
type ChatMessageSender func(ctx context.Context, msg models.ChatMessage) error

type chatSessionRepository interface {
	SaveSession(ctx context.Context, sessionId, userId string, state models.AgentState, title *string) error
	GetSession(ctx context.Context, sessionId string) (models.Session, error)
	SaveTurn(ctx context.Context, turn models.TurnInput) error
	GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error)
}

type ChatUsecase struct {
	sessionRepository chatSessionRepository
	workflow          workflow.Workflow
	storageBackend    repositories.StorageBackend
	tokenDelay        time.Duration
	now               func() time.Time
}

// ResumeSession loads a stored session for a connection opened on a known
// session id. It returns the history message to send, or nil when the session
// is unknown or the storage is unavailable.
func (u *ChatUsecase) ResumeSession(ctx context.Context, sessionId string) *models.ChatMessage {
	if isNilRepository(u.sessionRepository) {
		return nil
	}
	logger := utils.LoggerFromContext(ctx)

	if _, err := u.sessionRepository.GetSession(ctx, sessionId); err != nil {
		if !errors.Is(err, models.NotFoundError) {
			logger.WarnContext(ctx, "could not load session", "session_id", sessionId, "error", err.Error())
		}
		return nil
	}
	turns, err := u.sessionRepository.GetTurns(ctx, sessionId, nil)
	if err != nil {
		logger.WarnContext(ctx, "could not load session history", "session_id", sessionId, "error", err.Error())
		return nil
	}
	return &models.ChatMessage{
		Type:      models.ChatMessageHistory,
		SessionId: sessionId,
		Turns:     turns,
	}
}

// ProcessQuestion answers one question and streams the answer through send.
// It returns the session id used, which is generated when the request has none.
// Only transport failures are returned: workflow and storage problems are
// reported to the client or logged.
func (u *ChatUsecase) ProcessQuestion(ctx context.Context, req models.ChatRequest, send ChatMessageSender) (string, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return req.SessionId, send(ctx, errorMessage(models.ErrEmptyQuestion))
	}

	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = uuid.NewString()
	}
	logger := utils.LoggerFromContext(ctx).With("session_id", sessionId)
	ctx = utils.StoreLoggerInContext(ctx, logger)

	state := u.loadState(ctx, sessionId)
	userId := req.UserId
	if userId == "" && req.ResumedSession {
		userId = state.String(models.StateKeyUserId)
	}
	if userId == "" {
		userId = models.AnonymousUserId
	}
	state[models.StateKeyCurrentQuestion] = question
	state[models.StateKeyUserQuestion] = question
	state[models.StateKeySessionId] = sessionId
	state[models.StateKeyUserId] = userId

	if err := send(ctx, models.ChatMessage{
		Type:    models.ChatMessageStatus,
		Status:  models.ChatStatusProcessing,
		Message: "Processing your question...",
	}); err != nil {
		return sessionId, err
	}

	if u.workflow == nil {
		return sessionId, send(ctx, errorMessage(models.ErrWorkflowNotReady))
	}

	start := u.now()
	run := chatRun{usecase: u, send: send, finalState: state}
	err := run.consume(ctx, u.workflow.Run(ctx, models.WorkflowRequest{
		Question:      question,
		SessionId:     sessionId,
		UserId:        userId,
		UserEmail:     req.UserEmail,
		ExistingState: state,
		ThreadId:      sessionId,
	}))
	utils.MetricWorkflowLatency.WithLabelValues(string(u.workflow.Mode())).Observe(time.Since(start).Seconds())
	if err != nil {
		utils.MetricChatTurns.WithLabelValues("disconnected").Inc()
		return sessionId, err
	}

	if err := send(ctx, models.ChatMessage{Type: models.ChatMessageStream, Done: true}); err != nil {
		return sessionId, err
	}

	turnNumber := state.TurnNumber() + 1
	if err := send(ctx, models.ChatMessage{
		Type:       models.ChatMessageComplete,
		Response:   run.fullResponse,
		SessionId:  sessionId,
		TurnNumber: turnNumber,
		Metadata: map[string]any{
			"timestamp":     u.now().UTC().Format(time.RFC3339Nano),
			"question_type": run.finalState[models.StateKeyQuestionType],
			"next_agent":    run.finalState[models.StateKeyNextAgent],
			"mode":          string(u.workflow.Mode()),
		},
	}); err != nil {
		return sessionId, err
	}

	outcome := "completed"
	if run.failed {
		outcome = "failed"
	}
	utils.MetricChatTurns.WithLabelValues(outcome).Inc()

	u.persist(ctx, sessionId, userId, question, turnNumber, run)
	return sessionId, nil
}

func (u *ChatUsecase) loadState(ctx context.Context, sessionId string) models.AgentState {
	if isNilRepository(u.sessionRepository) {
		return models.AgentState{}
	}
	session, err := u.sessionRepository.GetSession(ctx, sessionId)
	if err != nil || session.State == nil {
		return models.AgentState{}
	}
	return session.State
}

func (u *ChatUsecase) persist(ctx context.Context, sessionId, userId, question string, turnNumber int, run chatRun) {
	if isNilRepository(u.sessionRepository) {
		return
	}
	logger := utils.LoggerFromContext(ctx)

	err := u.sessionRepository.SaveTurn(ctx, models.TurnInput{
		SessionId:     sessionId,
		TurnNumber:    turnNumber,
		UserQuestion:  question,
		AgentResponse: run.fullResponse,
		StateSnapshot: workflow.SanitizeState(run.finalState),
		Metadata:      map[string]any{"workflow": string(u.workflow.Mode())},
	})
	if err != nil {
		utils.MetricStorageErrors.WithLabelValues(string(u.storageBackend), "save_turn").Inc()
		logger.WarnContext(ctx, "could not save turn", "turn_number", turnNumber, "error", err.Error())
		return
	}

	sessionState := make(models.AgentState, len(run.finalState)+1)
	for k, v := range run.finalState {
		sessionState[k] = v
	}
	sessionState[models.StateKeyTurnNumber] = turnNumber

	var title *string
	if turnNumber == 1 {
		t := models.SessionTitle(question)
		title = &t
	}
	if err := u.sessionRepository.SaveSession(ctx, sessionId, userId, sessionState, title); err != nil {
		utils.MetricStorageErrors.WithLabelValues(string(u.storageBackend), "save_session").Inc()
		logger.WarnContext(ctx, "could not save session", "error", err.Error())
	}
}

// chatRun turns the events of one workflow run into chat messages.
type chatRun struct {
	usecase      *ChatUsecase
	send         ChatMessageSender
	fullResponse string
	finalState   models.AgentState
	failed       bool
}

func (r *chatRun) consume(ctx context.Context, events <-chan models.WorkflowEvent) error {
	for event := range events {
		if err := r.handle(ctx, event); err != nil {
			// let the workflow goroutine exit
			for range events {
			}
			return err
		}
	}
	return nil
}

func (r *chatRun) handle(ctx context.Context, event models.WorkflowEvent) error {
	switch event.Type {
	case models.WorkflowEventStart:
		return r.send(ctx, models.ChatMessage{
			Type:    models.ChatMessageStatus,
			Status:  models.ChatStatusStarted,
			Message: "Workflow started...",
		})

	case models.WorkflowEventNodeComplete:
		message := event.Status
		if message == "" {
			message = fmt.Sprintf("Completed %s...", event.Node)
		}
		return r.send(ctx, models.ChatMessage{
			Type:    models.ChatMessageStatus,
			Status:  models.ChatStatusProcessing,
			Message: message,
			Node:    event.Node,
		})

	case models.WorkflowEventNarrative:
		if event.Content == "" {
			return nil
		}
		r.fullResponse = event.Content
		return r.stream(ctx, event.Content)

	case models.WorkflowEventSqlResult:
		return r.send(ctx, models.ChatMessage{
			Type:     models.ChatMessageData,
			DataType: models.ChatDataSqlResult,
			Data:     event.Data,
		})

	case models.WorkflowEventChart:
		return r.send(ctx, models.ChatMessage{
			Type:     models.ChatMessageData,
			DataType: models.ChatDataChart,
			Spec:     event.Data,
		})

	case models.WorkflowEventFollowupQuestions:
		questions := event.Questions
		if questions == nil {
			questions = []string{}
		}
		return r.send(ctx, models.ChatMessage{
			Type:      models.ChatMessageData,
			DataType:  models.ChatDataFollowupQuestions,
			Questions: questions,
		})

	case models.WorkflowEventEnd:
		if event.State != nil {
			r.finalState = event.State
		}
		return r.finish(ctx)

	case models.WorkflowEventError:
		r.failed = true
		message := event.Error
		if message == "" {
			message = "Unknown error"
		}
		return r.send(ctx, models.ChatMessage{Type: models.ChatMessageError, Error: message})
	}
	return nil
}

// finish handles answers carried by the final state: greetings are streamed,
// follow-up questions asked by the workflow become clarifications.
func (r *chatRun) finish(ctx context.Context) error {
	state := r.finalState
	if greeting := state.String("greeting_response"); greeting != "" {
		r.fullResponse = greeting
		return r.stream(ctx, greeting)
	}

	clarifications := []struct {
		key  string
		kind models.ClarificationType
	}{
		{"domain_followup_question", models.ClarificationDomain},
		{"dataset_followup_question", models.ClarificationDataset},
		{"sql_followup_question", models.ClarificationSql},
	}
	for _, c := range clarifications {
		if message := state.String(c.key); message != "" {
			r.fullResponse = message
			return r.send(ctx, models.ChatMessage{
				Type:              models.ChatMessageClarification,
				ClarificationType: c.kind,
				Message:           message,
			})
		}
	}
	return nil
}

// stream sends the text word by word.
func (r *chatRun) stream(ctx context.Context, text string) error {
	for _, word := range strings.Fields(text) {
		if err := r.send(ctx, models.ChatMessage{Type: models.ChatMessageStream, Token: word + " "}); err != nil {
			return err
		}
		if r.usecase.tokenDelay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.usecase.tokenDelay):
		}
	}
	return nil
}

func errorMessage(err error) models.ChatMessage {
	return models.ChatMessage{Type: models.ChatMessageError, Error: models.PublicMessage(err)}
}
