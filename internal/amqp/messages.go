package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendlog/internal/core"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// ExpenseEvent describes a committed change to one expense record.
// Created and updated events carry the full record so consumers never read
// back from the API's store; deleted events carry the last known state.
type ExpenseEvent struct {
	Type      EventType     `json:"type"`
	ID        string        `json:"id"`
	DeviceID  string        `json:"deviceId"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseEvent creates an event for e stamped with the current time.
func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      t,
		ID:        e.ID,
		DeviceID:  e.DeviceID,
		Expense:   &e,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEvent) Validate() error {
	switch m.Type {
	case EventCreated, EventUpdated:
		if m.Expense == nil {
			return fmt.Errorf("%s event without expense", m.Type)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.ID == "" {
		return errors.New("event without expense id")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
