package models

type ChatMessageType string

const (
	ChatMessageStatus        ChatMessageType = "status"
	ChatMessageStream        ChatMessageType = "stream"
	ChatMessageComplete      ChatMessageType = "complete"
	ChatMessageData          ChatMessageType = "data"
	ChatMessageClarification ChatMessageType = "clarification"
	ChatMessageError         ChatMessageType = "error"
	ChatMessageHistory       ChatMessageType = "history"
	ChatMessagePong          ChatMessageType = "pong"
)

const (
	ChatStatusStarted    = "started"
	ChatStatusProcessing = "processing"
)

type ChatDataType string

const (
	ChatDataSqlResult         ChatDataType = "sql_result"
	ChatDataChart             ChatDataType = "chart"
	ChatDataFollowupQuestions ChatDataType = "followup_questions"
)

// ChatMessage is a server to client message of the chat protocol. Only the
// fields relevant to the message type are set.
type ChatMessage struct {
	Type ChatMessageType

	Status  string
	Message string
	Node    string

	Token string
	Done  bool

	Response   string
	SessionId  string
	TurnNumber int
	Metadata   map[string]any

	DataType  ChatDataType
	Data      any
	Spec      any
	Questions []string

	ClarificationType ClarificationType

	Error string

	Turns []Turn
}

// ChatRequest is one question sent by a client on a chat connection.
type ChatRequest struct {
	SessionId string
	UserId    string
	UserEmail string
	Question  string

	// ResumedSession is set when the connection was opened on the session id,
	// the stored user then answers for a message without user id.
	ResumedSession bool
}
