// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/promptsalchemy/tokenbank/internal/dbx"
	"github.com/promptsalchemy/tokenbank/internal/server/migrations"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/accounts"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/magiclinks"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/transactions"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// Transactions returns a transactions.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Transactions(db dbx.DBTX) transactions.Repository {
	return transactions.NewPostgresRepository(db)
}

// MagicLinks returns a magiclinks.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) MagicLinks(db dbx.DBTX) magiclinks.Repository {
	return magiclinks.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
