package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictleague/settlement/internal/domain"
)

// StakeStore implements domain.StakeStore using PostgreSQL. Stakes are
// written only through the Ledger; this store is read-only.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore creates a new StakeStore backed by the given connection pool.
func NewStakeStore(pool *pgxpool.Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

const stakeCols = `market_id, user_id, option_index, amount, risk,
	joker_used, claimed, placed_at, claimed_at`

func scanStake(row pgx.Row) (domain.Stake, error) {
	var st domain.Stake
	err := row.Scan(
		&st.MarketID, &st.UserID, &st.Option, &st.Amount, &st.Risk,
		&st.JokerUsed, &st.Claimed, &st.PlacedAt, &st.ClaimedAt,
	)
	return st, err
}

// Get retrieves the single stake for (market, user). It returns
// domain.ErrNotFound when the user has no stake on the market.
func (s *StakeStore) Get(ctx context.Context, marketID, userID string) (domain.Stake, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stakeCols+` FROM stakes WHERE market_id = $1 AND user_id = $2`,
		marketID, userID)
	st, err := scanStake(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Stake{}, domain.ErrNotFound
		}
		return domain.Stake{}, fmt.Errorf("postgres: get stake %s/%s: %w", marketID, userID, err)
	}
	return st, nil
}

// ListByMarket returns all stakes on a market ordered by placement time.
func (s *StakeStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Stake, error) {
	return s.list(ctx, "WHERE market_id = $1 ORDER BY placed_at ASC", marketID, opts)
}

// ListByUser returns a user's stakes across markets, newest first.
func (s *StakeStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Stake, error) {
	return s.list(ctx, "WHERE user_id = $1 ORDER BY placed_at DESC", userID, opts)
}

func (s *StakeStore) list(ctx context.Context, clause, key string, opts domain.ListOpts) ([]domain.Stake, error) {
	query := `SELECT ` + stakeCols + ` FROM stakes ` + clause
	args := []any{key}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes: %w", err)
	}
	defer rows.Close()

	var stakes []domain.Stake
	for rows.Next() {
		st, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stake: %w", err)
		}
		stakes = append(stakes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stakes rows: %w", err)
	}
	return stakes, nil
}

var _ domain.StakeStore = (*StakeStore)(nil)
