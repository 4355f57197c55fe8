package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEventMessage announces that the ledger snapshot was rewritten. It
// carries counts only; consumers read the snapshot itself from storage.
type LedgerEventMessage struct {
	Kind        string    `json:"kind"`
	EntityID    string    `json:"entityId,omitempty"`
	Found       bool      `json:"found"`
	Contacts    int       `json:"contacts"`
	Expenses    int       `json:"expenses"`
	LastUpdated time.Time `json:"lastUpdated"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event stamped with the current time.
func NewLedgerEventMessage(kind, entityID string, found bool, contacts, expenses int, lastUpdated time.Time) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:        kind,
		EntityID:    entityID,
		Found:       found,
		Contacts:    contacts,
		Expenses:    expenses,
		LastUpdated: lastUpdated,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
