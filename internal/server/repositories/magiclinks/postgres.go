// Package magiclinks provides a PostgreSQL-backed repository for magic-link
// tokens used in the passwordless login flow.
package magiclinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, token string, identity string) error {
	query := `
		INSERT INTO magic_links (token, identity, used)
		VALUES ($1, $2, FALSE)
	`
	if _, err := r.db.ExecContext(ctx, query, token, identity); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.MagicLink, error) {
	return r.find(ctx, token, false)
}

func (r *PostgresRepository) FindForUpdate(ctx context.Context, token string) (*models.MagicLink, error) {
	return r.find(ctx, token, true)
}

func (r *PostgresRepository) find(ctx context.Context, token string, forUpdate bool) (*models.MagicLink, error) {
	query := `
		SELECT token, identity, used, created_at
		FROM magic_links
		WHERE token = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	link := &models.MagicLink{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&link.Token, &link.Identity, &link.Used, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, token string) error {
	query := `
		UPDATE magic_links SET used = TRUE
		WHERE token = $1
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM magic_links
		WHERE created_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
