package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage asks the sync worker to mirror one transaction version to the ledger sheet.
// The worker loads the row itself; the message only carries the id and the version it was published for.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionDeleteMessage asks the sync worker to drop a deleted transaction from the ledger sheet.
type TransactionDeleteMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionDeleteMessage(id int64) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{ID: id, Timestamp: time.Now()}
}

func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
