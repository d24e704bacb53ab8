package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/settlement"
)

// Ledger implements domain.Ledger using PostgreSQL transactions. Every
// mutation runs inside a single transaction with SELECT ... FOR UPDATE row
// locks on the market or stake it touches, so concurrent operations on the
// same rows serialize and no partial state is ever observable.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// inTx runs fn inside a transaction, rolling back on error.
func (l *Ledger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// lockMarket selects a market row FOR UPDATE, serializing all concurrent
// ledger operations on that market.
func lockMarket(ctx context.Context, tx pgx.Tx, marketID string) (domain.Market, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1 FOR UPDATE`, marketID)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: lock market %s: %w", marketID, err)
	}
	return m, nil
}

// lockStake selects a stake row FOR UPDATE.
func lockStake(ctx context.Context, tx pgx.Tx, marketID, userID string) (domain.Stake, bool, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+stakeCols+` FROM stakes
		 WHERE market_id = $1 AND user_id = $2 FOR UPDATE`,
		marketID, userID)
	st, err := scanStake(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Stake{}, false, nil
		}
		return domain.Stake{}, false, fmt.Errorf("postgres: lock stake %s/%s: %w", marketID, userID, err)
	}
	return st, true, nil
}

// credit adds amount to an account, creating it if needed.
func credit(ctx context.Context, tx pgx.Tx, accountID string, amount int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (id, balance, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			balance    = accounts.balance + EXCLUDED.balance,
			updated_at = NOW()`,
		accountID, amount)
	if err != nil {
		return fmt.Errorf("postgres: credit account %s: %w", accountID, err)
	}
	return nil
}

// debit subtracts amount from an account, failing with
// domain.ErrInsufficientFunds when the balance does not cover it.
func debit(ctx context.Context, tx pgx.Tx, accountID string, amount int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2`,
		accountID, amount)
	if err != nil {
		return fmt.Errorf("postgres: debit account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// PlaceStake records a stake and moves the staked value from user custody
// into the market's pool, all in one transaction.
func (l *Ledger) PlaceStake(ctx context.Context, marketID, userID string, option int, amount int64, risk bool, now time.Time) (domain.Stake, error) {
	var st domain.Stake
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if m.Kind != domain.MarketKindPool {
			return domain.ErrInvalidConfig
		}
		if m.Locked(now) {
			return domain.ErrMarketLocked
		}
		if !m.ValidOption(option) {
			return domain.ErrInvalidOption
		}

		st = domain.Stake{
			MarketID: marketID,
			UserID:   userID,
			Option:   option,
			Amount:   amount,
			Risk:     risk,
			PlacedAt: now,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stakes (market_id, user_id, option_index, amount, risk, placed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			marketID, userID, option, amount, risk, now)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateStake
			}
			return fmt.Errorf("postgres: insert stake %s/%s: %w", marketID, userID, err)
		}

		if err := debit(ctx, tx, domain.UserAccount(userID), amount); err != nil {
			return err
		}
		if err := credit(ctx, tx, domain.PoolAccount(marketID), amount); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE markets SET total_staked = total_staked + $2 WHERE id = $1`,
			marketID, amount); err != nil {
			return fmt.Errorf("postgres: bump market total %s: %w", marketID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO market_options (market_id, option_index, staked)
			VALUES ($1, $2, $3)
			ON CONFLICT (market_id, option_index) DO UPDATE SET
				staked = market_options.staked + EXCLUDED.staked`,
			marketID, option, amount)
		if err != nil {
			return fmt.Errorf("postgres: bump option total %s/%d: %w", marketID, option, err)
		}
		return nil
	})
	if err != nil {
		return domain.Stake{}, err
	}
	return st, nil
}

// ResolveMarket performs the one-way open -> resolved transition: it freezes
// the risk-weighted winning total and the insurance reserve, skims the fee to
// the treasury account, and stores the net pool. The fee transfer and the
// resolved flag commit together or not at all.
func (l *Ledger) ResolveMarket(ctx context.Context, marketID string, correctOption int, feeBps int64, treasury string, now time.Time) (domain.Market, error) {
	var resolved domain.Market
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if m.Resolved {
			return domain.ErrAlreadyResolved
		}
		if !m.ValidOption(correctOption) {
			return domain.ErrInvalidOption
		}

		// Mirrors settlement.StakeWeight: plain = amount*2, risk = amount*3.
		var correctWeight int64
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(amount * 2 + CASE WHEN risk THEN amount ELSE 0 END), 0)
			FROM stakes WHERE market_id = $1 AND option_index = $2`,
			marketID, correctOption).Scan(&correctWeight)
		if err != nil {
			return fmt.Errorf("postgres: sum correct weight %s: %w", marketID, err)
		}

		// Earmark insurance refunds so the payout split cannot overdraw the
		// pool: jokered non-risk losers are owed their stake back, and
		// winners split only what remains.
		var jokerReserve int64
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(amount), 0)
			FROM stakes
			WHERE market_id = $1 AND option_index <> $2 AND joker_used AND NOT risk`,
			marketID, correctOption).Scan(&jokerReserve)
		if err != nil {
			return fmt.Errorf("postgres: sum joker reserve %s: %w", marketID, err)
		}

		fee := settlement.FeeWithReserve(m.TotalStaked, feeBps, jokerReserve)
		netPool := m.TotalStaked - fee

		if fee > 0 {
			if err := debit(ctx, tx, domain.PoolAccount(marketID), fee); err != nil {
				return err
			}
			if err := credit(ctx, tx, treasury, fee); err != nil {
				return err
			}
		}

		row := tx.QueryRow(ctx, `
			UPDATE markets SET
				resolved       = TRUE,
				correct_option = $2,
				fee_collected  = $3,
				net_pool       = $4,
				correct_weight = $5,
				joker_reserve  = $6,
				resolved_at    = $7
			WHERE id = $1
			RETURNING `+marketCols,
			marketID, correctOption, fee, netPool, correctWeight, jokerReserve, now)
		resolved, err = scanMarket(row)
		if err != nil {
			return fmt.Errorf("postgres: mark market resolved %s: %w", marketID, err)
		}
		return nil
	})
	if err != nil {
		return domain.Market{}, err
	}
	return resolved, nil
}

// UseJoker consumes one joker for the (user, season) grant and flags the
// stake. The consumption is irreversible; a joker spent on a risk stake is
// spent all the same even though it cannot change that stake's payout.
func (l *Ledger) UseJoker(ctx context.Context, marketID, userID, season string, now time.Time) (domain.Stake, error) {
	var st domain.Stake
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if m.Locked(now) {
			return domain.ErrMarketLocked
		}

		var found bool
		st, found, err = lockStake(ctx, tx, marketID, userID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrNoStake
		}
		if st.JokerUsed {
			return domain.ErrJokerAlreadyUsed
		}

		tag, err := tx.Exec(ctx, `
			UPDATE joker_grants SET remaining = remaining - 1, updated_at = NOW()
			WHERE user_id = $1 AND season = $2 AND remaining > 0`,
			userID, season)
		if err != nil {
			return fmt.Errorf("postgres: decrement joker grant %s/%s: %w", userID, season, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNoJokersRemaining
		}

		if _, err := tx.Exec(ctx,
			`UPDATE stakes SET joker_used = TRUE WHERE market_id = $1 AND user_id = $2`,
			marketID, userID); err != nil {
			return fmt.Errorf("postgres: flag joker on stake %s/%s: %w", marketID, userID, err)
		}
		st.JokerUsed = true
		return nil
	})
	if err != nil {
		return domain.Stake{}, err
	}
	return st, nil
}

// GrantJokers increments the (user, season) grant by count, creating the
// grant row if needed.
func (l *Ledger) GrantJokers(ctx context.Context, userID, season string, count int) (domain.JokerGrant, error) {
	row := l.pool.QueryRow(ctx, `
		INSERT INTO joker_grants (user_id, season, remaining, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, season) DO UPDATE SET
			remaining  = joker_grants.remaining + EXCLUDED.remaining,
			updated_at = NOW()
		RETURNING user_id, season, remaining, updated_at`,
		userID, season, count)

	var g domain.JokerGrant
	if err := row.Scan(&g.UserID, &g.Season, &g.Remaining, &g.UpdatedAt); err != nil {
		return domain.JokerGrant{}, fmt.Errorf("postgres: grant jokers %s/%s: %w", userID, season, err)
	}
	return g, nil
}

// Claim pays out a stake exactly once. The claimed-flag write and the
// pool-to-user transfer share the transaction, and the stake row lock
// linearizes concurrent claims: the second caller finds claimed = TRUE and
// gets domain.ErrAlreadyClaimed.
func (l *Ledger) Claim(ctx context.Context, marketID, userID string, now time.Time) (int64, error) {
	var payout int64
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMarket(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if !m.Resolved {
			return domain.ErrNotResolved
		}

		st, found, err := lockStake(ctx, tx, marketID, userID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrNoStake
		}
		if st.Claimed {
			return domain.ErrAlreadyClaimed
		}

		pick := settlement.Pick{
			Correct:   st.Option == *m.CorrectOption,
			Risk:      st.Risk,
			JokerUsed: st.JokerUsed,
		}
		payout = settlement.PoolPayout(pick, st.Amount, m.NetPool, m.JokerReserve, m.CorrectWeight)

		if payout > 0 {
			if err := debit(ctx, tx, domain.PoolAccount(marketID), payout); err != nil {
				return err
			}
			if err := credit(ctx, tx, domain.UserAccount(userID), payout); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE stakes SET claimed = TRUE, claimed_at = $3
			WHERE market_id = $1 AND user_id = $2`,
			marketID, userID, now); err != nil {
			return fmt.Errorf("postgres: flag claim %s/%s: %w", marketID, userID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return payout, nil
}

// ApplyEpisode folds one episode's scoring delta into the (user, season)
// aggregate. The row is created first so the FOR UPDATE always has something
// to lock: without that, two batches hitting a fresh (user, season) would
// both read the empty aggregate and the second would overwrite the first.
func (l *Ledger) ApplyEpisode(ctx context.Context, userID, season string, delta domain.EpisodeDelta) (domain.SeasonPoints, error) {
	var sp domain.SeasonPoints
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO season_points (user_id, season)
			VALUES ($1, $2)
			ON CONFLICT (user_id, season) DO NOTHING`,
			userID, season); err != nil {
			return fmt.Errorf("postgres: ensure season points %s/%s: %w", userID, season, err)
		}

		row := tx.QueryRow(ctx,
			`SELECT `+seasonCols+` FROM season_points
			 WHERE user_id = $1 AND season = $2 FOR UPDATE`,
			userID, season)
		cur, err := scanSeasonPoints(row)
		if err != nil {
			return fmt.Errorf("postgres: lock season points %s/%s: %w", userID, season, err)
		}

		newStreak, bonus := settlement.Streak(cur.CurrentStreak, delta.GotCorrect)
		longest := cur.LongestStreak
		if newStreak > longest {
			longest = newStreak
		}

		row = tx.QueryRow(ctx, `
			UPDATE season_points SET
				points         = $3,
				current_streak = $4,
				longest_streak = $5,
				correct_count  = $6,
				total_count    = $7,
				updated_at     = NOW()
			WHERE user_id = $1 AND season = $2
			RETURNING `+seasonCols,
			userID, season,
			cur.Points+delta.PickPoints+bonus,
			newStreak, longest,
			cur.CorrectCount+delta.Correct,
			cur.TotalCount+delta.Total)
		sp, err = scanSeasonPoints(row)
		if err != nil {
			return fmt.Errorf("postgres: apply episode %s/%s: %w", userID, season, err)
		}
		return nil
	})
	if err != nil {
		return domain.SeasonPoints{}, err
	}
	return sp, nil
}

// Deposit credits a user's custody account.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount int64) (domain.Account, error) {
	row := l.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, balance, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			balance    = accounts.balance + EXCLUDED.balance,
			updated_at = NOW()
		RETURNING id, balance, updated_at`,
		domain.UserAccount(userID), amount)

	var a domain.Account
	if err := row.Scan(&a.ID, &a.Balance, &a.UpdatedAt); err != nil {
		return domain.Account{}, fmt.Errorf("postgres: deposit %s: %w", userID, err)
	}
	return a, nil
}

var _ domain.Ledger = (*Ledger)(nil)
