package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecordedMessage announces that a ledger transaction was stored.
// It carries enough for a consumer to reconcile the owning project without
// reading the transaction back; the database stays the source of truth.
type TransactionRecordedMessage struct {
	TransactionID  string          `json:"transactionId"`
	OrganizationID int64           `json:"organizationId"`
	ProjectID      int64           `json:"projectId,omitempty"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewTransactionRecordedMessage stamps a message with the current time.
func NewTransactionRecordedMessage(transactionID string, organizationID, projectID int64, txnType string, amount decimal.Decimal) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		TransactionID:  transactionID,
		OrganizationID: organizationID,
		ProjectID:      projectID,
		Type:           txnType,
		Amount:         amount,
		Timestamp:      time.Now(),
	}
}

// IsOrganizationLevel reports whether the transaction belongs to no project.
func (m *TransactionRecordedMessage) IsOrganizationLevel() bool {
	return m.ProjectID == 0
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON decodes a message body.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
