package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictleague/settlement/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, question, kind, option_count, lock_time, resolved,
	correct_option, total_staked, fee_collected, net_pool, correct_weight,
	joker_reserve, created_at, resolved_at`

// Create persists a new open market with empty aggregates. It returns
// domain.ErrDuplicateMarket when a market with the same id already exists.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (id, question, kind, option_count, lock_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Question, string(m.Kind), m.OptionCount, m.LockTime, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateMarket
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var kind string
	err := row.Scan(
		&m.ID, &m.Question, &kind, &m.OptionCount, &m.LockTime, &m.Resolved,
		&m.CorrectOption, &m.TotalStaked, &m.FeeCollected, &m.NetPool,
		&m.CorrectWeight, &m.JokerReserve, &m.CreatedAt, &m.ResolvedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Kind = domain.MarketKind(kind)
	return m, nil
}

// GetByID retrieves a market by its primary key, including per-option staked
// totals. It returns domain.ErrMarketNotFound when the market does not exist.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}

	totals := make([]int64, m.OptionCount)
	rows, err := s.pool.Query(ctx,
		`SELECT option_index, staked FROM market_options WHERE market_id = $1`, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market options %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var staked int64
		if err := rows.Scan(&idx, &staked); err != nil {
			return domain.Market{}, fmt.Errorf("postgres: scan market option: %w", err)
		}
		if idx >= 0 && idx < len(totals) {
			totals[idx] = staked
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market options rows: %w", err)
	}
	m.OptionTotals = totals
	return m, nil
}

// ListOpen returns unresolved markets ordered by lock time.
func (s *MarketStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, "WHERE resolved = FALSE ORDER BY lock_time ASC", opts)
}

// ListResolved returns resolved markets, most recently resolved first.
func (s *MarketStore) ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, "WHERE resolved = TRUE ORDER BY resolved_at DESC", opts)
}

func (s *MarketStore) list(ctx context.Context, clause string, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ` + clause
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
