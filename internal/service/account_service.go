package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictleague/settlement/internal/auth"
	"github.com/predictleague/settlement/internal/domain"
)

// AccountService manages custody account balances.
type AccountService struct {
	accounts domain.AccountStore
	ledger   domain.Ledger
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	accounts domain.AccountStore,
	ledger domain.Ledger,
	audit domain.AuditStore,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		ledger:   ledger,
		audit:    audit,
		logger:   logger,
	}
}

// Deposit credits a user's custody account. Admin only; deposits represent
// value entering the system from outside and must stay an operator action.
func (s *AccountService) Deposit(ctx context.Context, userID string, amount int64) (domain.Account, error) {
	if err := auth.Require(ctx, auth.RoleAdmin); err != nil {
		return domain.Account{}, err
	}
	if amount <= 0 {
		return domain.Account{}, domain.ErrInvalidConfig
	}

	a, err := s.ledger.Deposit(ctx, userID, amount)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: deposit %q: %w", userID, err)
	}

	if auditErr := s.audit.Log(ctx, "deposit", map[string]any{
		"user_id": userID,
		"amount":  amount,
		"balance": a.Balance,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "account_service: audit log failed",
			slog.String("user_id", userID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account_service: deposit",
		slog.String("user_id", userID),
		slog.Int64("amount", amount),
		slog.Int64("balance", a.Balance),
	)

	return a, nil
}

// Get returns a user's custody account balance.
func (s *AccountService) Get(ctx context.Context, userID string) (domain.Account, error) {
	a, err := s.accounts.Get(ctx, domain.UserAccount(userID))
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: get %q: %w", userID, err)
	}
	return a, nil
}
