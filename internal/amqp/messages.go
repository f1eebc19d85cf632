package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind tells the worker what happened to a payable.
type ChangeKind string

const (
	ChangeUpsert ChangeKind = "upsert"
	ChangeDelete ChangeKind = "delete"
)

// PayableChangeMessage is a lightweight notification about one payable.
// It carries only the id and version; the worker reads the full record
// from the database before mirroring it.
type PayableChangeMessage struct {
	Kind      ChangeKind `json:"kind"`
	ID        int64      `json:"id"`
	Version   int64      `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewPayableSyncMessage announces a created or updated payable.
func NewPayableSyncMessage(id, version int64) *PayableChangeMessage {
	return &PayableChangeMessage{
		Kind:      ChangeUpsert,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewPayableDeleteMessage announces a removed payable.
func NewPayableDeleteMessage(id int64) *PayableChangeMessage {
	return &PayableChangeMessage{
		Kind:      ChangeDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PayableChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PayableChangeMessageFromJSON decodes a message. Messages without a kind
// are treated as upserts.
func PayableChangeMessageFromJSON(data []byte) (*PayableChangeMessage, error) {
	var msg PayableChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case "":
		msg.Kind = ChangeUpsert
	case ChangeUpsert, ChangeDelete:
	default:
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid payable id %d", msg.ID)
	}
	return &msg, nil
}
