// Package transactions declares the repository contract for the append-only
// transaction log.
package transactions

import (
	"context"

	"github.com/promptsalchemy/tokenbank/internal/server/models"
)

// Repository defines operations on transaction rows. Rows are append-only;
// there is no update or delete.
type Repository interface {
	// Append inserts a new transaction row. A deposit whose (identity,
	// reference) pair was already recorded returns
	// common.ErrDuplicateReference.
	Append(ctx context.Context, t *models.Transaction) error

	// ListByIdentity returns the identity's transactions, newest first.
	ListByIdentity(ctx context.Context, identity string) ([]models.Transaction, error)
}
