package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"labcash/internal/store"
)

// RecordChangedMessage tells the export worker that a collection changed.
// It carries no record data; the worker rebuilds the month from the store.
type RecordChangedMessage struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	ID         string    `json:"id,omitempty"`
	Month      string    `json:"month,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(ev store.RecordChanged) *RecordChangedMessage {
	return &RecordChangedMessage{
		Collection: ev.Collection,
		Op:         ev.Op,
		ID:         ev.ID,
		Month:      ev.Month,
		Timestamp:  time.Now().UTC(),
	}
}

// Event converts the message back to a store event.
func (m *RecordChangedMessage) Event() store.RecordChanged {
	return store.RecordChanged{Collection: m.Collection, Op: m.Op, ID: m.ID, Month: m.Month}
}

// AllMonths reports whether the change affects every month (roster edits
// and imports).
func (m *RecordChangedMessage) AllMonths() bool {
	return m.Month == ""
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Collection == "" || msg.Op == "" {
		return nil, fmt.Errorf("record change message missing collection or op")
	}
	return &msg, nil
}
