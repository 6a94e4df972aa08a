// Package httpapi exposes the ledger and magic-link services over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/logging"
	"github.com/promptsalchemy/tokenbank/internal/server/config"
	"github.com/promptsalchemy/tokenbank/internal/server/models"
)

// Ledger is the balance/transaction surface the handlers call.
type Ledger interface {
	GetBalance(ctx context.Context, identity string) (int64, error)
	Deposit(ctx context.Context, identity string, amount int64, reference string) (int64, error)
	Spend(ctx context.Context, identity string, amount int64, consumer string, description string) (int64, error)
	History(ctx context.Context, identity string) ([]models.Transaction, error)
}

// Authenticator is the magic-link surface the handlers call.
type Authenticator interface {
	Issue(ctx context.Context, identity string) (string, error)
	Verify(ctx context.Context, token string, maxAge time.Duration, consume bool) (string, error)
}

// Pinger reports storage liveness for the health endpoint. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	ledger       Ledger
	auth         Authenticator
	db           Pinger
	serviceToken string
	maxAge       time.Duration
	logger       logging.Logger
}

// NewServer wires the handlers to their services. An empty service token in
// cfg disables the bearer check; anything else is required verbatim on every
// /v1 route.
func NewServer(ledger Ledger, auth Authenticator, db Pinger, cfg *config.Config, logger logging.Logger) *Server {
	return &Server{
		ledger:       ledger,
		auth:         auth,
		db:           db,
		serviceToken: cfg.ServiceToken,
		maxAge:       cfg.MagicLinkMaxAge,
		logger:       logger.With("module", "httpapi"),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/deposit", s.authMiddleware(http.HandlerFunc(s.handleDeposit)))
	mux.Handle("/v1/spend", s.authMiddleware(http.HandlerFunc(s.handleSpend)))
	mux.Handle("/v1/balance", s.authMiddleware(http.HandlerFunc(s.handleBalance)))
	mux.Handle("/v1/transactions", s.authMiddleware(http.HandlerFunc(s.handleTransactions)))
	mux.Handle("/v1/auth/magic-link", s.authMiddleware(http.HandlerFunc(s.handleIssueMagicLink)))
	mux.Handle("/v1/auth/verify", s.authMiddleware(http.HandlerFunc(s.handleVerifyMagicLink)))
	mux.Handle("/healthz", http.HandlerFunc(s.handleHealth))
	return mux
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.serviceToken != "" {
			token := extractBearerToken(r.Header.Get("Authorization"))
			if !secureCompare(token, s.serviceToken) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
