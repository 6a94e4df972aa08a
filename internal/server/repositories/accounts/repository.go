// Package accounts declares the repository contract for per-identity token
// balances.
package accounts

import "context"

// Repository defines storage operations on account rows. Methods that are
// part of a read-modify-write sequence are expected to run against a
// transactional DBTX; the repository itself never opens transactions.
type Repository interface {
	// CreateIfAbsent inserts an account seeded with the given balance when no
	// row for identity exists yet. It reports whether a row was created.
	CreateIfAbsent(ctx context.Context, identity string, balance int64) (bool, error)

	// GetBalance returns the current balance, or common.ErrorNotFound when
	// the account does not exist.
	GetBalance(ctx context.Context, identity string) (int64, error)

	// GetBalanceForUpdate reads the balance under a row lock (FOR UPDATE).
	// Only meaningful inside a transaction.
	GetBalanceForUpdate(ctx context.Context, identity string) (int64, error)

	// AddToBalance applies a signed delta and returns the resulting balance.
	AddToBalance(ctx context.Context, identity string, delta int64) (int64, error)
}
