package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/healthfin/healthcare-api/utils"
)

const (
	DefaultWsClientUrl = "ws://localhost:8000/ws/chat"
	wsClientQuestion   = "Hello, what can you help me with?"
	wsClientTimeout    = 30 * time.Second
)

type WsClientOptions struct {
	Url         string
	ReadTimeout time.Duration
	Out         io.Writer
}

// RunWsClient sends one question to the chat endpoint and prints the
// server messages until the answer is complete.
func RunWsClient(ctx context.Context, opts WsClientOptions) error {
	if opts.Url == "" {
		opts.Url = utils.GetEnv("WS_CLIENT_URL", DefaultWsClientUrl)
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = wsClientTimeout
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "Connecting to %s...\n", opts.Url)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.Url, nil)
	if err != nil {
		fmt.Fprintln(out, "ERROR: Could not connect. Is the server running?")
		return errors.Wrapf(err, "could not connect to %s", opts.Url)
	}
	defer conn.Close()
	fmt.Fprintln(out, "Connected!")

	fmt.Fprintf(out, "\nSending: %s\n", wsClientQuestion)
	err = conn.WriteJSON(map[string]string{
		"type":       "message",
		"question":   wsClientQuestion,
		"user_id":    "test-user",
		"session_id": "test-session-001",
	})
	if err != nil {
		return errors.Wrap(err, "could not send the test message")
	}

	fmt.Fprintln(out, "\nReceiving responses:")
	fmt.Fprintln(out, strings.Repeat("-", 50))

	for {
		if err := conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout)); err != nil {
			return err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				fmt.Fprintf(out, "[TIMEOUT] No response in %s\n", opts.ReadTimeout)
				return nil
			}
			return errors.Wrap(err, "connection closed")
		}
		if done := printWsMessage(out, gjson.ParseBytes(raw)); done {
			return nil
		}
	}
}

// printWsMessage renders one server message and tells whether the exchange is over.
func printWsMessage(out io.Writer, msg gjson.Result) bool {
	switch msg.Get("type").String() {
	case "status":
		fmt.Fprintf(out, "[STATUS] %s\n", msg.Get("message").String())
	case "stream":
		if token := msg.Get("token").String(); token != "" {
			fmt.Fprint(out, token)
		}
		if msg.Get("done").Bool() {
			fmt.Fprintln(out, "\n[STREAM COMPLETE]")
		}
	case "complete":
		fmt.Fprintf(out, "\n[COMPLETE] Turn %d\n", msg.Get("turn_number").Int())
		fmt.Fprintf(out, "Session: %s\n", msg.Get("session_id").String())
		return true
	case "error":
		fmt.Fprintf(out, "[ERROR] %s\n", msg.Get("error").String())
		return true
	case "data":
		payload := msg.Get("data").Raw
		if len(payload) > 100 {
			payload = payload[:100]
		}
		fmt.Fprintf(out, "[DATA] %s: %s...\n", msg.Get("data_type").String(), payload)
	case "clarification":
		fmt.Fprintf(out, "[CLARIFICATION] %s: %s\n",
			msg.Get("clarification_type").String(), msg.Get("message").String())
	}
	return false
}
