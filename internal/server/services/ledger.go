// Package services contains server-side business logic. This file implements
// LedgerService, which owns token balances and the append-only transaction
// log behind them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/promptsalchemy/tokenbank/internal/common"
	"github.com/promptsalchemy/tokenbank/internal/dbx"
	"github.com/promptsalchemy/tokenbank/internal/logging"
	"github.com/promptsalchemy/tokenbank/internal/server/cache"
	"github.com/promptsalchemy/tokenbank/internal/server/config"
	"github.com/promptsalchemy/tokenbank/internal/server/events"
	"github.com/promptsalchemy/tokenbank/internal/server/models"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/repomanager"
)

const grantDescription = "Free tier grant"

// LedgerService provides balance operations:
//   - GetBalance: read, creating the account with the free-tier grant on
//     first sight
//   - Deposit: credit tokens bought through an external payment
//   - Spend: debit tokens for a consuming application
//   - History: the identity's transaction log
//
// Every write runs inside one transaction so the balance change and its
// transaction row land together or not at all. Event publishing and the
// balance cache are refreshed only after a commit and never fail the
// operation.
type LedgerService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	logger    logging.Logger
	publisher events.Publisher
	balances  *cache.BalanceCache
	freeGrant int64
	topic     string
}

// NewLedgerService constructs a LedgerService using repositories and server
// config. publisher must not be nil (use events.NoopPublisher); balances may
// be nil when no cache is configured.
func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, publisher events.Publisher, balances *cache.BalanceCache) *LedgerService {
	return &LedgerService{
		db:        db,
		repos:     m,
		logger:    logger.With("module", "ledger"),
		publisher: publisher,
		balances:  balances,
		freeGrant: cfg.FreeTierGrant,
		topic:     cfg.KafkaTopic,
	}
}

// GetBalance returns the identity's current balance. A never-seen identity
// gets an account seeded with the free-tier grant, recorded with its own
// transaction row so the log still sums to the balance. Creation is
// idempotent under concurrency: the ON CONFLICT insert makes sure exactly
// one caller seeds the grant.
func (s *LedgerService) GetBalance(ctx context.Context, identity string) (int64, error) {
	if balance, ok := s.balances.Get(ctx, identity); ok {
		return balance, nil
	}

	var balance int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repos.Accounts(tx)

		created, err := accounts.CreateIfAbsent(ctx, identity, s.freeGrant)
		if err != nil {
			return err
		}
		if created && s.freeGrant != 0 {
			grant := &models.Transaction{
				ID:          uuid.NewString(),
				Identity:    identity,
				Amount:      s.freeGrant,
				Description: grantDescription,
			}
			if err := s.repos.Transactions(tx).Append(ctx, grant); err != nil {
				return err
			}
			s.logger.Info(ctx, "created account with free-tier grant", "identity", identity, "grant", s.freeGrant)
		}

		balance, err = accounts.GetBalance(ctx, identity)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	s.cacheBalance(ctx, identity, balance)
	return balance, nil
}

// Deposit credits amount tokens bought through the external payment
// identified by reference and returns the new balance. Replaying a reference
// does not credit twice: the first transaction wins and the replay returns
// the current balance unchanged.
func (s *LedgerService) Deposit(ctx context.Context, identity string, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var (
		balance int64
		txID    string
	)
	description := "Purchase via " + reference

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repos.Accounts(tx)

		// A deposit onto a never-seen identity starts the account at zero;
		// the free-tier grant only applies on first balance lookup.
		if _, err := accounts.CreateIfAbsent(ctx, identity, 0); err != nil {
			return err
		}

		txID = uuid.NewString()
		deposit := &models.Transaction{
			ID:          txID,
			Identity:    identity,
			Amount:      amount,
			Description: description,
			Reference:   reference,
		}
		if err := s.repos.Transactions(tx).Append(ctx, deposit); err != nil {
			return err
		}

		var err error
		balance, err = accounts.AddToBalance(ctx, identity, amount)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateReference) {
			s.logger.Warn(ctx, "duplicate payment reference, deposit not re-applied", "identity", identity, "reference", reference)
			return s.GetBalance(ctx, identity)
		}
		return 0, fmt.Errorf("deposit: %w", err)
	}

	s.cacheBalance(ctx, identity, balance)
	s.publishTransaction(ctx, txID, identity, amount, description, balance)
	return balance, nil
}

// Spend debits amount tokens on behalf of consumer and returns the remaining
// balance. The balance check and the decrement share one row lock, so two
// concurrent spends can never drive the balance negative; a shortfall
// returns common.ErrInsufficientBalance and writes nothing.
func (s *LedgerService) Spend(ctx context.Context, identity string, amount int64, consumer string, description string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var (
		balance int64
		txID    string
	)
	memo := consumer + ": " + description

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repos.Accounts(tx)

		current, err := accounts.GetBalanceForUpdate(ctx, identity)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInsufficientBalance
			}
			return err
		}
		if current < amount {
			return common.ErrInsufficientBalance
		}

		balance, err = accounts.AddToBalance(ctx, identity, -amount)
		if err != nil {
			return err
		}

		txID = uuid.NewString()
		spend := &models.Transaction{
			ID:          txID,
			Identity:    identity,
			Amount:      -amount,
			Description: memo,
		}
		return s.repos.Transactions(tx).Append(ctx, spend)
	})
	if err != nil {
		if errors.Is(err, common.ErrInsufficientBalance) {
			return 0, common.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("spend: %w", err)
	}

	s.cacheBalance(ctx, identity, balance)
	s.publishTransaction(ctx, txID, identity, -amount, memo, balance)
	return balance, nil
}

// History returns the identity's transactions, newest first.
func (s *LedgerService) History(ctx context.Context, identity string) ([]models.Transaction, error) {
	list, err := s.repos.Transactions(s.db).ListByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return list, nil
}

func (s *LedgerService) cacheBalance(ctx context.Context, identity string, balance int64) {
	if err := s.balances.Set(ctx, identity, balance); err != nil {
		s.logger.Warn(ctx, "balance cache update failed", "identity", identity, "error", err.Error())
	}
}

func (s *LedgerService) publishTransaction(ctx context.Context, txID, identity string, amount int64, description string, balance int64) {
	ev := events.TransactionCompleted{
		TransactionID: txID,
		Identity:      identity,
		Amount:        amount,
		Description:   description,
		Balance:       balance,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(s.topic, ev); err != nil {
		s.logger.Warn(ctx, "transaction event publish failed", "transaction_id", txID, "error", err.Error())
	}
}
