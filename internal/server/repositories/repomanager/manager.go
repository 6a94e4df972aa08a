package repomanager

import (
	"context"
	"database/sql"

	"github.com/promptsalchemy/tokenbank/internal/dbx"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/accounts"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/magiclinks"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/transactions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Transactions(db dbx.DBTX) transactions.Repository
	MagicLinks(db dbx.DBTX) magiclinks.Repository
}
