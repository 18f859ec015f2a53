package models

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Base errors, related to default API status codes
var (
	// BadParameterError is rendered with the http status code 400
	BadParameterError = errors.New("bad parameter")

	// NotFoundError is rendered with the http status code 404
	NotFoundError = errors.New("not found")

	// UnavailableError is rendered with the http status code 503
	UnavailableError = errors.New("service unavailable")
)

var (
	ErrEmptyQuestion         = errors.Wrap(BadParameterError, "Question cannot be empty")
	ErrStorageNotInitialized = errors.Wrap(UnavailableError, "Storage not initialized")
	ErrWorkflowNotReady      = errors.Wrap(UnavailableError, "Workflow not initialized. Check server logs.")
	ErrRateLimited           = errors.Wrap(BadParameterError, "Too many messages, slow down")
)

// PublicMessage is the message of the outermost wrap, without the base error
// it was wrapped around.
func PublicMessage(err error) string {
	msg := err.Error()
	for _, base := range []error{BadParameterError, UnavailableError, NotFoundError} {
		msg = strings.TrimSuffix(msg, ": "+base.Error())
	}
	return msg
}
