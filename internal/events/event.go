// Package events implements the in-process event bus the weather agent publishes
// query outcomes on.
//
// Subscription patterns come in three forms:
//
//	"*"               every event
//	"weather.*"       every event whose type starts with "weather."
//	"weather.current" only that exact type
//
// Publication is synchronous and follows registration order. A panicking handler is
// recovered and logged; it never stops the remaining handlers or reaches the publisher.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single published occurrence. Events are not mutated after Publish.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SourceID  string         `json:"sourceId"`
	Operation string         `json:"operation"`
	Data      map[string]any `json:"data"`
	Error     *ErrorInfo     `json:"error,omitempty"`
}

// ErrorInfo carries the failure message of an error event.
type ErrorInfo struct {
	Message string `json:"message"`
}

// Failed reports whether e describes a failed operation.
func (e Event) Failed() bool {
	return e.Error != nil
}

// New creates an event with a fresh ID and the current time.
func New(eventType, sourceID, operation string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SourceID:  sourceID,
		Operation: operation,
		Data:      data,
	}
}

// WithError returns a copy of e carrying err's message.
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = &ErrorInfo{Message: err.Error()}
	}
	return e
}

// Handler receives published events.
type Handler func(Event)
