package core

import (
	"context"
	"errors"
	"fmt"
)

// TimeoutMessage is shown when the metadata request exceeds its deadline.
const TimeoutMessage = "Request timed out. Please try again."

// ErrTimeout is returned by Info when the request deadline passes.
var ErrTimeout = errors.New("request timed out")

// ServerError is a logical failure reported in the `error` field of a JSON
// body. Its message is meant to be shown to the user unchanged.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// StatusError is a non-2xx response that carried no `error` field.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error %d", e.StatusCode)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps a failure to reach the server at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage maps err to the text a user should see. Server-reported and
// timeout errors keep their own text; anything else gets fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Message
	}
	if errors.Is(err, ErrTimeout) {
		return TimeoutMessage
	}
	var verbatim interface{ Verbatim() bool }
	if errors.As(err, &verbatim) && verbatim.Verbatim() {
		return err.Error()
	}
	return fallback
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
