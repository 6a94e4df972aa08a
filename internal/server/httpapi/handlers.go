package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/promptsalchemy/tokenbank/internal/common"
	"github.com/promptsalchemy/tokenbank/internal/server/models"
)

type depositRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"payment_id"`
}

type spendRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	AppID       string `json:"app_id"`
	Description string `json:"description"`
}

type issueMagicLinkRequest struct {
	Email string `json:"email"`
}

type verifyMagicLinkRequest struct {
	Token         string `json:"token"`
	MaxAgeSeconds int64  `json:"max_age_seconds"`
	Consume       *bool  `json:"consume"`
}

type balanceResponse struct {
	Email   string `json:"email"`
	Balance int64  `json:"balance"`
}

type ledgerOpResponse struct {
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.PaymentID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	balance, err := s.ledger.Deposit(r.Context(), req.Email, req.Amount, req.PaymentID)
	if err != nil {
		if errors.Is(err, common.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		s.logger.Error(r.Context(), "deposit failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, ledgerOpResponse{Status: "deposited", Balance: balance})
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	var req spendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.AppID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	balance, err := s.ledger.Spend(r.Context(), req.Email, req.Amount, req.AppID, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, common.ErrInsufficientBalance):
			writeError(w, http.StatusPaymentRequired, "insufficient_tokens")
		default:
			s.logger.Error(r.Context(), "spend failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, ledgerOpResponse{Status: "spent", Balance: balance})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	balance, err := s.ledger.GetBalance(r.Context(), email)
	if err != nil {
		s.logger.Error(r.Context(), "balance lookup failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{Email: email, Balance: balance})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	list, err := s.ledger.History(r.Context(), email)
	if err != nil {
		s.logger.Error(r.Context(), "transaction list failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, toTransactionListResponse(list))
}

func (s *Server) handleIssueMagicLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	var req issueMagicLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	token, err := s.auth.Issue(r.Context(), req.Email)
	if err != nil {
		s.logger.Error(r.Context(), "magic link issue failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleVerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	var req verifyMagicLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	maxAge := s.maxAge
	if req.MaxAgeSeconds > 0 {
		maxAge = time.Duration(req.MaxAgeSeconds) * time.Second
	}
	// Verification consumes the token unless the caller opts out.
	consume := true
	if req.Consume != nil {
		consume = *req.Consume
	}

	identity, err := s.auth.Verify(r.Context(), req.Token, maxAge, consume)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		s.logger.Error(r.Context(), "magic link verify failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": identity})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error(r.Context(), "health check failed", "error", err.Error())
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toTransactionListResponse(list []models.Transaction) transactionListResponse {
	out := transactionListResponse{Transactions: make([]transactionResponse, 0, len(list))}
	for _, t := range list {
		out.Transactions = append(out.Transactions, transactionResponse{
			ID:          t.ID,
			Amount:      t.Amount,
			Description: t.Description,
			Reference:   t.Reference,
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}
