// Package events publishes ledger activity to an external broker. Publishing
// is best-effort: the ledger never fails a committed operation because a
// broker was unreachable.
package events

import "time"

// TransactionCompleted is emitted after a deposit or spend commits.
type TransactionCompleted struct {
	TransactionID string    `json:"transaction_id"`
	Identity      string    `json:"identity"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	Balance       int64     `json:"balance"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher sends an event to the named topic.
type Publisher interface {
	Publish(topic string, event any) error
}
