package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pushforge/pushforge/internal/core"
	"github.com/pushforge/pushforge/internal/domain/model"
	apperrors "github.com/pushforge/pushforge/internal/errors"
)

// CreditServiceOptions groups dependencies for CreditService.
type CreditServiceOptions struct {
	Ledger core.CreditLedger // Required: credit ledger
	Logger *slog.Logger      // Optional: structured logger
}

// CreditService exposes the ledger operations consumed by the purchase flow
// and by operators. Settlement itself goes through the JobService; this
// service only adds credits and reads balances.
type CreditService struct {
	ledger core.CreditLedger
	logger *slog.Logger
}

// NewCreditService constructs a new CreditService.
func NewCreditService(opts CreditServiceOptions) (*CreditService, error) {
	if opts.Ledger == nil {
		return nil, errors.New("CreditLedger is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "credit_service")
	}
	return &CreditService{ledger: opts.Ledger, logger: logger}, nil
}

// MustNewCreditService constructs a new CreditService and panics on error.
func MustNewCreditService(opts CreditServiceOptions) *CreditService {
	svc, err := NewCreditService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create CreditService: %v", err))
	}
	return svc
}

// GetBalance returns the user's current balance; unknown users have zero.
func (s *CreditService) GetBalance(ctx context.Context, userID string) (int, error) {
	return s.ledger.GetBalance(ctx, userID)
}

// Grant adds credits to a user's account. The external purchase flow calls
// this with the purchase type when a payment is confirmed; operators use the
// grant type.
func (s *CreditService) Grant(
	ctx context.Context,
	userID string,
	amount int,
	txType model.TransactionType,
) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("grant amount must be positive")
	}
	if txType != model.TransactionPurchase && txType != model.TransactionGrant {
		return nil, apperrors.ValidationField("type", "grants must use purchase or grant type")
	}

	txn, err := s.ledger.AdjustBalance(ctx, userID, amount, txType)
	if err != nil {
		return nil, fmt.Errorf("grant credits: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credits granted",
			"user_id", userID,
			"amount", amount,
			"type", txType,
			"balance", txn.BalanceAfter,
		)
	}
	return txn, nil
}

// Transactions returns the user's transaction history, newest first.
func (s *CreditService) Transactions(
	ctx context.Context,
	userID string,
	limit int,
) ([]*model.Transaction, error) {
	return s.ledger.ListTransactions(ctx, userID, limit)
}
