package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventOp names the change that produced an EntryEvent.
type EventOp string

const (
	OpCreated EventOp = "created"
	OpUpdated EventOp = "updated"
	OpDeleted EventOp = "deleted"
)

// EntryEvent announces that an entry changed. It carries only what a
// consumer needs to find the affected months; consumers re-read the store
// for the entries themselves.
type EntryEvent struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"owner_id"`
	Op      EventOp `json:"op"`
	// OccurredOn is the entry date after the change, or before a delete.
	OccurredOn string `json:"occurred_on"`
	// PreviousOn is set when an update moved the entry to another date.
	PreviousOn string    `json:"previous_on,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEntryEvent creates an event stamped with the current time.
func NewEntryEvent(op EventOp, id, ownerID, occurredOn string) *EntryEvent {
	return &EntryEvent{
		ID:         id,
		OwnerID:    ownerID,
		Op:         op,
		OccurredOn: occurredOn,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventFromJSON decodes and sanity-checks an event body.
func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" || msg.OccurredOn == "" {
		return nil, errors.New("entry event missing owner or date")
	}
	switch msg.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, errors.New("entry event has unknown op " + string(msg.Op))
	}
	return &msg, nil
}
