package mediator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidEvent is returned when registering for or publishing an
	// event with an empty name.
	ErrInvalidEvent = errors.New("invalid event: name is empty")

	// ErrPayloadType is reported for a handler whose registration used a
	// different payload type than the publication under the same name.
	ErrPayloadType = errors.New("payload type does not match handler")
)

// HandlerError is the failure of one handler during a publish or replay.
type HandlerError struct {
	// Event is the published event name.
	Event string

	// Store and Source identify the registration whose handler failed.
	Store  string
	Source string

	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s on store %s failed: %v", e.Event, e.Store, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// AggregateError collects every handler failure of one publish or replay.
// All handlers ran; Errors lists the failures in delivery order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d handlers failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap enables errors.Is and errors.As against any individual failure.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}
