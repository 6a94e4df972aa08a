package models

import "time"

// Transaction is one immutable row per balance change. Amount is signed:
// positive for deposits, negative for spends. For an identity, the sum of
// all amounts equals the account balance.
type Transaction struct {
	ID          string
	Identity    string
	Amount      int64
	Description string
	// Reference carries the external payment id for deposits and is empty
	// for spends and grants. It backs the duplicate-deposit guard.
	Reference string
	CreatedAt time.Time
}
