package amqp

import (
	"encoding/json"
	"time"
)

// Ops carried by a ChangeMessage.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeMessage is the lightweight notification published for every ledger
// mutation. It carries only the record id and operation; consumers fetch
// current record data from the store themselves, so a stale message can
// never overwrite newer state.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change notification for a record mutation.
func NewChangeMessage(id, op string) *ChangeMessage {
	return &ChangeMessage{ID: id, Op: op, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes.
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
