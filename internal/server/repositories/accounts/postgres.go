// Package accounts provides a PostgreSQL-backed repository for account
// balances.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/promptsalchemy/tokenbank/internal/common"
	"github.com/promptsalchemy/tokenbank/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, identity string, balance int64) (bool, error) {
	query := `
		INSERT INTO accounts (identity, balance)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, identity, balance)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetBalance(ctx context.Context, identity string) (int64, error) {
	query := `
		SELECT balance FROM accounts
		WHERE identity = $1
	`
	var balance int64
	if err := r.db.QueryRowContext(ctx, query, identity).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) GetBalanceForUpdate(ctx context.Context, identity string) (int64, error) {
	query := `
		SELECT balance FROM accounts
		WHERE identity = $1
		FOR UPDATE
	`
	var balance int64
	if err := r.db.QueryRowContext(ctx, query, identity).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) AddToBalance(ctx context.Context, identity string, delta int64) (int64, error) {
	query := `
		UPDATE accounts SET balance = balance + $1
		WHERE identity = $2
		RETURNING balance
	`
	var balance int64
	if err := r.db.QueryRowContext(ctx, query, delta, identity).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}
