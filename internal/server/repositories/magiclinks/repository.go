// Package magiclinks declares the repository contract for persisted
// magic-link tokens.
package magiclinks

import (
	"context"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/server/models"
)

// Repository defines operations for storing and verifying magic-link tokens.
type Repository interface {
	// Create stores a freshly issued token for identity with used = false.
	Create(ctx context.Context, token string, identity string) error

	// Find returns the row for the given token string, or
	// common.ErrorNotFound when absent.
	Find(ctx context.Context, token string) (*models.MagicLink, error)

	// FindForUpdate is Find under a row lock (FOR UPDATE). Only meaningful
	// inside a transaction.
	FindForUpdate(ctx context.Context, token string) (*models.MagicLink, error)

	// MarkUsed flips the used flag. Marking an unknown token returns
	// common.ErrorNotFound.
	MarkUsed(ctx context.Context, token string) error

	// DeleteOlderThan removes tokens created before the cutoff and reports
	// how many rows went away.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
