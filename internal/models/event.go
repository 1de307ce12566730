package models

import (
	"encoding/json"
	"fmt"
)

// UpdateEvent is one decoded message from the per-job update channel. All
// keys are optional; unknown keys are ignored. Results is a pointer so an
// explicitly empty result list (a valid snapshot) is distinguishable from
// an absent key.
type UpdateEvent struct {
	Status  string     `json:"status,omitempty"`
	Results *[]Product `json:"results,omitempty"`
	Logs    []string   `json:"logs,omitempty"`
}

// HasStatus reports whether the message carried a status key
func (e *UpdateEvent) HasStatus() bool {
	return e.Status != ""
}

// HasResults reports whether the message carried a results key, even an
// empty one.
func (e *UpdateEvent) HasResults() bool {
	return e.Results != nil
}

// DecodeError marks a malformed inbound channel message. The message is
// logged and discarded; the channel stays open.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed update message: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// DecodeUpdateEvent parses a raw channel message
func DecodeUpdateEvent(data []byte) (*UpdateEvent, error) {
	var event UpdateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, &DecodeError{Cause: err}
	}
	return &event, nil
}
