// Package transactions provides a PostgreSQL-backed repository for the
// append-only transaction log.
package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/promptsalchemy/tokenbank/internal/common"
	"github.com/promptsalchemy/tokenbank/internal/dbx"
	"github.com/promptsalchemy/tokenbank/internal/server/models"
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

func (r *PostgresRepository) Append(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, identity, amount, description, reference)
		VALUES ($1, $2, $3, $4, $5)
	`
	var ref sql.NullString
	if t.Reference != "" {
		ref = sql.NullString{String: t.Reference, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.Identity, t.Amount, t.Description, ref); err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateReference
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByIdentity(ctx context.Context, identity string) ([]models.Transaction, error) {
	query := `
		SELECT id, identity, amount, description, COALESCE(reference, ''), created_at
		FROM transactions
		WHERE identity = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Identity, &t.Amount, &t.Description, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
