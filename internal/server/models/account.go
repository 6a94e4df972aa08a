// Package models holds the persisted entities owned by the ledger and the
// magic-link authenticator.
package models

import "time"

// Account is one row per identity. Balance never goes below zero; the row is
// created lazily on first balance lookup or first deposit.
type Account struct {
	Identity  string
	Balance   int64
	CreatedAt time.Time
}
