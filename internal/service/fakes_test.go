package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/settlement"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeLedger is an in-memory domain.Ledger good enough for service tests.
// It applies the same settlement math as the real store but without
// transactions.
type fakeLedger struct {
	mu       sync.Mutex
	markets  map[string]*domain.Market
	stakes   map[string]*domain.Stake // key marketID + "/" + userID
	jokers   map[string]*domain.JokerGrant
	seasons  map[string]*domain.SeasonPoints
	balances map[string]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		markets:  make(map[string]*domain.Market),
		stakes:   make(map[string]*domain.Stake),
		jokers:   make(map[string]*domain.JokerGrant),
		seasons:  make(map[string]*domain.SeasonPoints),
		balances: make(map[string]int64),
	}
}

func stakeKey(marketID, userID string) string { return marketID + "/" + userID }

func (f *fakeLedger) PlaceStake(_ context.Context, marketID, userID string, option int, amount int64, risk bool, now time.Time) (domain.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.markets[marketID]
	if !ok {
		return domain.Stake{}, domain.ErrMarketNotFound
	}
	if m.Kind != domain.MarketKindPool {
		return domain.Stake{}, domain.ErrInvalidConfig
	}
	if m.Locked(now) {
		return domain.Stake{}, domain.ErrMarketLocked
	}
	if !m.ValidOption(option) {
		return domain.Stake{}, domain.ErrInvalidOption
	}
	key := stakeKey(marketID, userID)
	if _, exists := f.stakes[key]; exists {
		return domain.Stake{}, domain.ErrDuplicateStake
	}
	if f.balances[domain.UserAccount(userID)] < amount {
		return domain.Stake{}, domain.ErrInsufficientFunds
	}
	f.balances[domain.UserAccount(userID)] -= amount
	f.balances[domain.PoolAccount(marketID)] += amount
	m.TotalStaked += amount

	st := domain.Stake{
		MarketID: marketID, UserID: userID, Option: option,
		Amount: amount, Risk: risk, PlacedAt: now,
	}
	f.stakes[key] = &st
	return st, nil
}

func (f *fakeLedger) ResolveMarket(_ context.Context, marketID string, correctOption int, feeBps int64, treasury string, now time.Time) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.markets[marketID]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	if m.Resolved {
		return domain.Market{}, domain.ErrAlreadyResolved
	}
	if !m.ValidOption(correctOption) {
		return domain.Market{}, domain.ErrInvalidOption
	}

	var correctWeight, jokerReserve int64
	for _, st := range f.stakes {
		if st.MarketID != marketID {
			continue
		}
		if st.Option == correctOption {
			correctWeight += settlement.StakeWeight(st.Amount, st.Risk)
		} else if st.JokerUsed && !st.Risk {
			jokerReserve += st.Amount
		}
	}
	fee := settlement.FeeWithReserve(m.TotalStaked, feeBps, jokerReserve)
	f.balances[domain.PoolAccount(marketID)] -= fee
	f.balances[treasury] += fee

	m.Resolved = true
	m.CorrectOption = &correctOption
	m.FeeCollected = fee
	m.NetPool = m.TotalStaked - fee
	m.CorrectWeight = correctWeight
	m.JokerReserve = jokerReserve
	m.ResolvedAt = &now
	return *m, nil
}

func (f *fakeLedger) UseJoker(_ context.Context, marketID, userID, season string, now time.Time) (domain.Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.markets[marketID]
	if !ok {
		return domain.Stake{}, domain.ErrMarketNotFound
	}
	if m.Locked(now) {
		return domain.Stake{}, domain.ErrMarketLocked
	}
	st, ok := f.stakes[stakeKey(marketID, userID)]
	if !ok {
		return domain.Stake{}, domain.ErrNoStake
	}
	if st.JokerUsed {
		return domain.Stake{}, domain.ErrJokerAlreadyUsed
	}
	g, ok := f.jokers[stakeKey(userID, season)]
	if !ok || g.Remaining <= 0 {
		return domain.Stake{}, domain.ErrNoJokersRemaining
	}
	g.Remaining--
	st.JokerUsed = true
	return *st, nil
}

func (f *fakeLedger) GrantJokers(_ context.Context, userID, season string, count int) (domain.JokerGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := stakeKey(userID, season)
	g, ok := f.jokers[key]
	if !ok {
		g = &domain.JokerGrant{UserID: userID, Season: season}
		f.jokers[key] = g
	}
	g.Remaining += count
	return *g, nil
}

func (f *fakeLedger) Claim(_ context.Context, marketID, userID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.markets[marketID]
	if !ok {
		return 0, domain.ErrMarketNotFound
	}
	if !m.Resolved {
		return 0, domain.ErrNotResolved
	}
	st, ok := f.stakes[stakeKey(marketID, userID)]
	if !ok {
		return 0, domain.ErrNoStake
	}
	if st.Claimed {
		return 0, domain.ErrAlreadyClaimed
	}
	pick := settlement.Pick{
		Correct:   st.Option == *m.CorrectOption,
		Risk:      st.Risk,
		JokerUsed: st.JokerUsed,
	}
	payout := settlement.PoolPayout(pick, st.Amount, m.NetPool, m.JokerReserve, m.CorrectWeight)
	f.balances[domain.PoolAccount(marketID)] -= payout
	f.balances[domain.UserAccount(userID)] += payout
	st.Claimed = true
	st.ClaimedAt = &now
	return payout, nil
}

func (f *fakeLedger) ApplyEpisode(_ context.Context, userID, season string, delta domain.EpisodeDelta) (domain.SeasonPoints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := stakeKey(userID, season)
	sp, ok := f.seasons[key]
	if !ok {
		sp = &domain.SeasonPoints{UserID: userID, Season: season}
		f.seasons[key] = sp
	}
	newStreak, bonus := settlement.Streak(sp.CurrentStreak, delta.GotCorrect)
	sp.Points += delta.PickPoints + bonus
	sp.CurrentStreak = newStreak
	if newStreak > sp.LongestStreak {
		sp.LongestStreak = newStreak
	}
	sp.CorrectCount += delta.Correct
	sp.TotalCount += delta.Total
	return *sp, nil
}

func (f *fakeLedger) Deposit(_ context.Context, userID string, amount int64) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct := domain.UserAccount(userID)
	f.balances[acct] += amount
	return domain.Account{ID: acct, Balance: f.balances[acct]}, nil
}

// fakeMarketStore serves reads out of the fakeLedger's state.
type fakeMarketStore struct{ ledger *fakeLedger }

func (s *fakeMarketStore) Create(_ context.Context, m domain.Market) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if _, exists := s.ledger.markets[m.ID]; exists {
		return domain.ErrDuplicateMarket
	}
	s.ledger.markets[m.ID] = &m
	return nil
}

func (s *fakeMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	m, ok := s.ledger.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return *m, nil
}

func (s *fakeMarketStore) ListOpen(context.Context, domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}

func (s *fakeMarketStore) ListResolved(context.Context, domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}

func (s *fakeMarketStore) Count(context.Context) (int64, error) { return 0, nil }

// fakeStakeStore serves reads out of the fakeLedger's state.
type fakeStakeStore struct{ ledger *fakeLedger }

func (s *fakeStakeStore) Get(_ context.Context, marketID, userID string) (domain.Stake, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	st, ok := s.ledger.stakes[stakeKey(marketID, userID)]
	if !ok {
		return domain.Stake{}, domain.ErrNotFound
	}
	return *st, nil
}

func (s *fakeStakeStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.Stake, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	var out []domain.Stake
	for _, st := range s.ledger.stakes {
		if st.MarketID == marketID {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *fakeStakeStore) ListByUser(context.Context, string, domain.ListOpts) ([]domain.Stake, error) {
	return nil, nil
}

// fakeSeasonStore serves reads out of the fakeLedger's state.
type fakeSeasonStore struct{ ledger *fakeLedger }

func (s *fakeSeasonStore) Get(_ context.Context, userID, season string) (domain.SeasonPoints, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	sp, ok := s.ledger.seasons[stakeKey(userID, season)]
	if !ok {
		return domain.SeasonPoints{UserID: userID, Season: season}, nil
	}
	return *sp, nil
}

func (s *fakeSeasonStore) ListBySeason(_ context.Context, season string, opts domain.ListOpts) ([]domain.SeasonPoints, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	var out []domain.SeasonPoints
	for _, sp := range s.ledger.seasons {
		if sp.Season == season {
			out = append(out, *sp)
		}
	}
	return out, nil
}

// fakeJokerStore serves reads out of the fakeLedger's state.
type fakeJokerStore struct{ ledger *fakeLedger }

func (s *fakeJokerStore) Get(_ context.Context, userID, season string) (domain.JokerGrant, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	g, ok := s.ledger.jokers[stakeKey(userID, season)]
	if !ok {
		return domain.JokerGrant{UserID: userID, Season: season}, nil
	}
	return *g, nil
}

// fakeAuditStore records events in memory.
type fakeAuditStore struct {
	mu     sync.Mutex
	events []string
}

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeAuditStore) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

// fakeBus records published channels in memory.
type fakeBus struct {
	mu       sync.Mutex
	channels []string
}

func (b *fakeBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, channel)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

// fakeLocks hands out locks, tracking currently held keys.
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

// fakeLeaderboard keeps scores in memory.
type fakeLeaderboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int64 // season -> user -> points
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{scores: make(map[string]map[string]int64)}
}

func (lb *fakeLeaderboard) Record(_ context.Context, season, userID string, points int64) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.scores[season] == nil {
		lb.scores[season] = make(map[string]int64)
	}
	lb.scores[season][userID] = points
	return nil
}

func (lb *fakeLeaderboard) Top(_ context.Context, season string, n int) ([]domain.LeaderboardEntry, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	var out []domain.LeaderboardEntry
	for userID, points := range lb.scores[season] {
		out = append(out, domain.LeaderboardEntry{UserID: userID, Points: points})
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
