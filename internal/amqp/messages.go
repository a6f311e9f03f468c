package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP publishing's Type property so the
// consumer can dispatch without sniffing the body.
const (
	TypeRecordSync   = "record.sync"
	TypeRecordDelete = "record.delete"
)

// RecordSyncMessage asks the sync worker to (re-)export one record.
// Only the id travels; the worker fetches the current row from the
// database so stale messages never overwrite fresher data.
type RecordSyncMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(id string, version int64) *RecordSyncMessage {
	return &RecordSyncMessage{ID: id, Version: version, Timestamp: time.Now()}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecordDeleteMessage asks the sync worker to remove one exported
// record. Series deletions publish one message per removed instance.
type RecordDeleteMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordDeleteMessage(id string) *RecordDeleteMessage {
	return &RecordDeleteMessage{ID: id, Timestamp: time.Now()}
}

func (m *RecordDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordDeleteMessageFromJSON(data []byte) (*RecordDeleteMessage, error) {
	var msg RecordDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
