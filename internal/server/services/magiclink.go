package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/common"
	"github.com/promptsalchemy/tokenbank/internal/dbx"
	"github.com/promptsalchemy/tokenbank/internal/logging"
	"github.com/promptsalchemy/tokenbank/internal/server/auth"
	"github.com/promptsalchemy/tokenbank/internal/server/repositories/repomanager"
)

// MagicLinkService issues and verifies single-use, time-limited login
// tokens. The token format comes from the configured auth.TokenCodec; the
// single-use and expiry rules live here and are identical for both formats.
//
// Verification has two modes. consume=false is a read: any number of calls
// return the identity and never touch the used flag, so a multi-page flow
// can re-check the session on every page. consume=true burns the token
// inside the same transaction that read it, so exactly one consuming call
// can ever succeed.
type MagicLinkService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	codec  auth.TokenCodec
	logger logging.Logger
}

// NewMagicLinkService constructs a MagicLinkService around the given codec.
func NewMagicLinkService(db *sql.DB, m repomanager.RepositoryManager, codec auth.TokenCodec, logger logging.Logger) *MagicLinkService {
	return &MagicLinkService{
		db:     db,
		repos:  m,
		codec:  codec,
		logger: logger.With("module", "magiclink"),
	}
}

// Issue creates a fresh token for identity and persists it unused. Delivery
// (the actual emailed link) is the caller's concern.
func (s *MagicLinkService) Issue(ctx context.Context, identity string) (string, error) {
	token, err := s.codec.Encode(identity)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	if err := s.repos.MagicLinks(s.db).Create(ctx, token, identity); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info(ctx, "magic link issued", "identity", identity)
	return token, nil
}

// Verify resolves token to the identity it authenticates. It returns
// common.ErrInvalidToken for anything that must not log in: malformed or
// forged tokens, unknown tokens, tokens older than maxAge, and tokens
// already consumed. The sub-reason is logged but deliberately not exposed.
func (s *MagicLinkService) Verify(ctx context.Context, token string, maxAge time.Duration, consume bool) (string, error) {
	hint, err := s.codec.Decode(token)
	if err != nil {
		s.logger.Debug(ctx, "magic link rejected", "reason", "malformed")
		return "", common.ErrInvalidToken
	}

	if !consume {
		link, err := s.repos.MagicLinks(s.db).Find(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Debug(ctx, "magic link rejected", "reason", "unknown")
				return "", common.ErrInvalidToken
			}
			return "", fmt.Errorf("verify token: %w", err)
		}
		if reason := s.check(link.Used, link.CreatedAt, link.Identity, hint, maxAge); reason != "" {
			s.logger.Debug(ctx, "magic link rejected", "reason", reason)
			return "", common.ErrInvalidToken
		}
		return link.Identity, nil
	}

	var identity string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.MagicLinks(tx)

		link, err := repo.FindForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Debug(ctx, "magic link rejected", "reason", "unknown")
				return common.ErrInvalidToken
			}
			return err
		}
		if reason := s.check(link.Used, link.CreatedAt, link.Identity, hint, maxAge); reason != "" {
			s.logger.Debug(ctx, "magic link rejected", "reason", reason)
			return common.ErrInvalidToken
		}

		if err := repo.MarkUsed(ctx, token); err != nil {
			return err
		}
		identity = link.Identity
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("verify token: %w", err)
	}

	s.logger.Info(ctx, "magic link consumed", "identity", identity)
	return identity, nil
}

// check applies the validity rules shared by both verification modes and
// returns the rejection reason, or "" when the token is good.
func (s *MagicLinkService) check(used bool, created time.Time, identity, hint string, maxAge time.Duration) string {
	if used {
		return "already used"
	}
	if time.Since(created) > maxAge {
		return "expired"
	}
	// A signed token must agree with the row it points at.
	if hint != "" && hint != identity {
		return "identity mismatch"
	}
	return ""
}

// PurgeExpired deletes tokens created more than olderThan ago. Expired rows
// are otherwise kept as an audit trail; this is an explicit operator action,
// never run implicitly.
func (s *MagicLinkService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	n, err := s.repos.MagicLinks(s.db).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	if n > 0 {
		s.logger.Info(ctx, "purged expired magic links", "count", n)
	}
	return n, nil
}
