package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictleague/settlement/internal/domain"
)

// SeasonStore implements domain.SeasonStore and domain.JokerStore reads using
// PostgreSQL. Mutations go through the Ledger.
type SeasonStore struct {
	pool *pgxpool.Pool
}

// NewSeasonStore creates a new SeasonStore backed by the given connection pool.
func NewSeasonStore(pool *pgxpool.Pool) *SeasonStore {
	return &SeasonStore{pool: pool}
}

const seasonCols = `user_id, season, points, current_streak, longest_streak,
	correct_count, total_count, updated_at`

func scanSeasonPoints(row pgx.Row) (domain.SeasonPoints, error) {
	var sp domain.SeasonPoints
	err := row.Scan(
		&sp.UserID, &sp.Season, &sp.Points, &sp.CurrentStreak,
		&sp.LongestStreak, &sp.CorrectCount, &sp.TotalCount, &sp.UpdatedAt,
	)
	return sp, err
}

// Get retrieves a user's season aggregate. A user who has never been scored
// gets a zero-valued aggregate rather than an error.
func (s *SeasonStore) Get(ctx context.Context, userID, season string) (domain.SeasonPoints, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+seasonCols+` FROM season_points WHERE user_id = $1 AND season = $2`,
		userID, season)
	sp, err := scanSeasonPoints(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.SeasonPoints{UserID: userID, Season: season}, nil
		}
		return domain.SeasonPoints{}, fmt.Errorf("postgres: get season points %s/%s: %w", userID, season, err)
	}
	return sp, nil
}

// ListBySeason returns a season's aggregates ranked by points descending.
func (s *SeasonStore) ListBySeason(ctx context.Context, season string, opts domain.ListOpts) ([]domain.SeasonPoints, error) {
	query := `SELECT ` + seasonCols + ` FROM season_points
		WHERE season = $1 ORDER BY points DESC, user_id ASC`
	args := []any{season}
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
		return nil, fmt.Errorf("postgres: list season points: %w", err)
	}
	defer rows.Close()

	var out []domain.SeasonPoints
	for rows.Next() {
		sp, err := scanSeasonPoints(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan season points: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list season points rows: %w", err)
	}
	return out, nil
}

var _ domain.SeasonStore = (*SeasonStore)(nil)

// JokerStore implements domain.JokerStore using PostgreSQL.
type JokerStore struct {
	pool *pgxpool.Pool
}

// NewJokerStore creates a new JokerStore backed by the given connection pool.
func NewJokerStore(pool *pgxpool.Pool) *JokerStore {
	return &JokerStore{pool: pool}
}

// Get retrieves a user's joker grant for a season. A user with no grant row
// has zero jokers remaining.
func (s *JokerStore) Get(ctx context.Context, userID, season string) (domain.JokerGrant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, season, remaining, updated_at
		 FROM joker_grants WHERE user_id = $1 AND season = $2`,
		userID, season)

	var g domain.JokerGrant
	err := row.Scan(&g.UserID, &g.Season, &g.Remaining, &g.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.JokerGrant{UserID: userID, Season: season}, nil
		}
		return domain.JokerGrant{}, fmt.Errorf("postgres: get joker grant %s/%s: %w", userID, season, err)
	}
	return g, nil
}

var _ domain.JokerStore = (*JokerStore)(nil)
