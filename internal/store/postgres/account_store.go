package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictleague/settlement/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL. Balances are
// mutated only inside Ledger transactions.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore backed by the given connection pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Get retrieves a custody account by ID. An account that has never been
// funded reads as a zero balance.
func (s *AccountStore) Get(ctx context.Context, id string) (domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, balance, updated_at FROM accounts WHERE id = $1`, id)

	var a domain.Account
	err := row.Scan(&a.ID, &a.Balance, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Account{ID: id}, nil
		}
		return domain.Account{}, fmt.Errorf("postgres: get account %s: %w", id, err)
	}
	return a, nil
}

var _ domain.AccountStore = (*AccountStore)(nil)
