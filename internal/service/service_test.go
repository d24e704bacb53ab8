package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictleague/settlement/internal/auth"
	"github.com/predictleague/settlement/internal/domain"
)

func resolverCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{Role: auth.RoleResolver})
}

func adminCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{Role: auth.RoleAdmin})
}

func serviceCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{Role: auth.RoleService})
}

type fixture struct {
	ledger      *fakeLedger
	markets     *fakeMarketStore
	stakes      *fakeStakeStore
	seasons     *fakeSeasonStore
	jokers      *fakeJokerStore
	audit       *fakeAuditStore
	bus         *fakeBus
	locks       *fakeLocks
	leaderboard *fakeLeaderboard
}

func newFixture() *fixture {
	ledger := newFakeLedger()
	return &fixture{
		ledger:      ledger,
		markets:     &fakeMarketStore{ledger: ledger},
		stakes:      &fakeStakeStore{ledger: ledger},
		seasons:     &fakeSeasonStore{ledger: ledger},
		jokers:      &fakeJokerStore{ledger: ledger},
		audit:       &fakeAuditStore{},
		bus:         &fakeBus{},
		locks:       newFakeLocks(),
		leaderboard: newFakeLeaderboard(),
	}
}

func (f *fixture) marketService() *MarketService {
	return NewMarketService(f.markets, f.ledger, f.audit, f.bus, nil, nil,
		MarketServiceConfig{FeeBps: 300, TreasuryAccount: "treasury"}, testLogger())
}

func (f *fixture) stakeService() *StakeService {
	return NewStakeService(f.stakes, f.ledger, f.audit, f.bus, testLogger())
}

func (f *fixture) payoutService() *PayoutService {
	return NewPayoutService(f.markets, f.stakes, f.ledger, f.audit, f.bus, nil, testLogger())
}

func (f *fixture) jokerService() *JokerService {
	return NewJokerService(f.jokers, f.ledger, f.audit, f.bus, testLogger())
}

func (f *fixture) scoringService() *ScoringService {
	return NewScoringService(f.seasons, f.ledger, f.locks, f.leaderboard,
		f.audit, f.bus, nil, testLogger())
}

func (f *fixture) accountService() *AccountService {
	accounts := &fakeAccountStore{ledger: f.ledger}
	return NewAccountService(accounts, f.ledger, f.audit, testLogger())
}

type fakeAccountStore struct{ ledger *fakeLedger }

func (s *fakeAccountStore) Get(_ context.Context, id string) (domain.Account, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return domain.Account{ID: id, Balance: s.ledger.balances[id]}, nil
}

func openMarket(id string, kind domain.MarketKind, now time.Time) domain.Market {
	return domain.Market{
		ID:          id,
		Question:    "Who wins episode 4?",
		Kind:        kind,
		OptionCount: 3,
		LockTime:    now.Add(time.Hour),
	}
}

func TestMarketCreateValidation(t *testing.T) {
	f := newFixture()
	svc := f.marketService()
	now := time.Now()

	_, err := svc.Create(context.Background(), openMarket("m1", domain.MarketKindPool, now), now)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	m := openMarket("m1", domain.MarketKindPool, now)
	m.OptionCount = 1
	_, err = svc.Create(resolverCtx(), m, now)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	m = openMarket("m1", domain.MarketKindPool, now)
	m.LockTime = now.Add(-time.Minute)
	_, err = svc.Create(resolverCtx(), m, now)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	m = openMarket("m1", "lottery", now)
	_, err = svc.Create(resolverCtx(), m, now)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	created, err := svc.Create(resolverCtx(), openMarket("m1", domain.MarketKindPool, now), now)
	require.NoError(t, err)
	assert.Equal(t, "m1", created.ID)

	_, err = svc.Create(resolverCtx(), openMarket("m1", domain.MarketKindPool, now), now)
	assert.ErrorIs(t, err, domain.ErrDuplicateMarket)
}

func TestPoolLifecycle(t *testing.T) {
	f := newFixture()
	now := time.Now()
	ctx := resolverCtx()

	_, err := f.marketService().Create(ctx, openMarket("ep4", domain.MarketKindPool, now), now)
	require.NoError(t, err)

	for _, userID := range []string{"alice", "bob", "carol"} {
		_, err := f.ledger.Deposit(context.Background(), userID, 1000)
		require.NoError(t, err)
	}

	stakes := f.stakeService()
	// alice and bob back option 0, carol backs option 1. bob risks.
	_, err = stakes.Place(context.Background(), "ep4", "alice", 0, 300, 0, false, now)
	require.NoError(t, err)
	_, err = stakes.Place(context.Background(), "ep4", "bob", 0, 300, 0, true, now)
	require.NoError(t, err)
	placed, err := stakes.Place(context.Background(), "ep4", "carol", 1, 400, 500, false, now)
	require.NoError(t, err)
	assert.Equal(t, int64(100), placed.Refunded)

	// Duplicate stake rejected.
	_, err = stakes.Place(context.Background(), "ep4", "alice", 1, 100, 0, false, now)
	assert.ErrorIs(t, err, domain.ErrDuplicateStake)

	// Payout before resolution fails.
	_, err = f.payoutService().Calculate(context.Background(), "ep4", "alice")
	assert.ErrorIs(t, err, domain.ErrNotResolved)

	m, err := f.marketService().Resolve(ctx, "ep4", 0, now)
	require.NoError(t, err)
	// 1000 staked, 3% fee floor = 30, net 970.
	assert.Equal(t, int64(30), m.FeeCollected)
	assert.Equal(t, int64(970), m.NetPool)

	// alice weight 600, bob weight 900, total 1500.
	// alice: 970*600/1500 = 388, bob: 970*900/1500 = 582.
	alicePayout, err := f.payoutService().Calculate(context.Background(), "ep4", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(388), alicePayout)

	bobPayout, err := f.payoutService().Claim(context.Background(), "ep4", "bob", now)
	require.NoError(t, err)
	assert.Equal(t, int64(582), bobPayout)

	// Second claim rejected.
	_, err = f.payoutService().Claim(context.Background(), "ep4", "bob", now)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	// Losers get zero.
	carolPayout, err := f.payoutService().Calculate(context.Background(), "ep4", "carol")
	require.NoError(t, err)
	assert.Zero(t, carolPayout)

	// No stake means zero entitlement, not an error.
	nonePayout, err := f.payoutService().Calculate(context.Background(), "ep4", "dave")
	require.NoError(t, err)
	assert.Zero(t, nonePayout)

	// Double resolution rejected.
	_, err = f.marketService().Resolve(ctx, "ep4", 1, now)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestJokerGrantAndUse(t *testing.T) {
	f := newFixture()
	now := time.Now()

	_, err := f.marketService().Create(resolverCtx(), openMarket("ep5", domain.MarketKindPool, now), now)
	require.NoError(t, err)
	_, err = f.ledger.Deposit(context.Background(), "alice", 500)
	require.NoError(t, err)
	_, err = f.stakeService().Place(context.Background(), "ep5", "alice", 0, 200, 0, false, now)
	require.NoError(t, err)

	jokers := f.jokerService()

	_, err = jokers.Grant(serviceCtx(), "alice", "s1", 2)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	g, err := jokers.Grant(adminCtx(), "alice", "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Remaining)

	// No jokers for bob.
	_, err = f.ledger.Deposit(context.Background(), "bob", 500)
	require.NoError(t, err)
	_, err = f.stakeService().Place(context.Background(), "ep5", "bob", 1, 100, 0, false, now)
	require.NoError(t, err)
	_, err = jokers.Use(context.Background(), "ep5", "bob", "s1", now)
	assert.ErrorIs(t, err, domain.ErrNoJokersRemaining)

	st, err := jokers.Use(context.Background(), "ep5", "alice", "s1", now)
	require.NoError(t, err)
	assert.True(t, st.JokerUsed)

	_, err = jokers.Use(context.Background(), "ep5", "alice", "s1", now)
	assert.ErrorIs(t, err, domain.ErrJokerAlreadyUsed)

	remaining, err := jokers.Remaining(context.Background(), "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining.Remaining)
}

func TestPoolConservationWithJokerRefund(t *testing.T) {
	f := newFixture()
	now := time.Now()
	ctx := resolverCtx()

	_, err := f.marketService().Create(ctx, openMarket("ep11", domain.MarketKindPool, now), now)
	require.NoError(t, err)
	for _, userID := range []string{"alice", "bob"} {
		_, err := f.ledger.Deposit(context.Background(), userID, 1000)
		require.NoError(t, err)
	}

	// alice 200 on option 0, bob 300 on option 1 with a joker.
	_, err = f.stakeService().Place(context.Background(), "ep11", "alice", 0, 200, 0, false, now)
	require.NoError(t, err)
	_, err = f.stakeService().Place(context.Background(), "ep11", "bob", 1, 300, 0, false, now)
	require.NoError(t, err)
	_, err = f.jokerService().Grant(adminCtx(), "bob", "s1", 1)
	require.NoError(t, err)
	_, err = f.jokerService().Use(context.Background(), "ep11", "bob", "s1", now)
	require.NoError(t, err)

	m, err := f.marketService().Resolve(ctx, "ep11", 0, now)
	require.NoError(t, err)
	// 500 staked, fee 15, net 485. bob's refund is reserved; alice splits
	// the remaining 185.
	assert.Equal(t, int64(485), m.NetPool)
	assert.Equal(t, int64(300), m.JokerReserve)

	// The refund claims first; the winner's claim must still be funded.
	bobPayout, err := f.payoutService().Claim(context.Background(), "ep11", "bob", now)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bobPayout)

	alicePayout, err := f.payoutService().Claim(context.Background(), "ep11", "alice", now)
	require.NoError(t, err)
	assert.Equal(t, int64(185), alicePayout)

	// Conservation: claims exhaust the net pool exactly, never overdraw it.
	assert.LessOrEqual(t, bobPayout+alicePayout, m.NetPool)
	assert.Zero(t, f.ledger.balances[domain.PoolAccount("ep11")])
}

func TestSettleEpisode(t *testing.T) {
	f := newFixture()
	svc := f.scoringService()

	picks := []domain.EpisodePick{
		{UserID: "alice", Correct: true, Odds: 100},
		{UserID: "alice", Correct: false, Odds: -110},
		{UserID: "bob", Correct: true, Odds: 300, Risk: true},
		{UserID: "carol", Correct: false, Odds: 150, JokerUsed: true},
	}

	_, err := svc.SettleEpisode(context.Background(), "ep6", "s1", picks)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	results, err := svc.SettleEpisode(resolverCtx(), "ep6", "s1", picks)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Sorted by user: alice, bob, carol.
	assert.Equal(t, "alice", results[0].UserID)
	assert.Equal(t, int64(200), results[0].PickPoints)
	assert.Equal(t, int64(200), results[0].Season.Points)
	assert.Equal(t, 1, results[0].Season.CurrentStreak)

	// 100 * 4.0 * 1.5 = 600.
	assert.Equal(t, "bob", results[1].UserID)
	assert.Equal(t, int64(600), results[1].PickPoints)

	// Joker save pays flat 100 but does not start a streak.
	assert.Equal(t, "carol", results[2].UserID)
	assert.Equal(t, int64(100), results[2].PickPoints)
	assert.Equal(t, 0, results[2].Season.CurrentStreak)

	// Leaderboard projection refreshed.
	top, err := svc.Leaderboard(context.Background(), "s1", 10)
	require.NoError(t, err)
	assert.Len(t, top, 3)

	// Second episode extends alice's streak and pays the bonus.
	results, err = svc.SettleEpisode(resolverCtx(), "ep7", "s1",
		[]domain.EpisodePick{{UserID: "alice", Correct: true, Odds: 100}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Season.CurrentStreak)
	// 200 + 200 + 25 streak bonus.
	assert.Equal(t, int64(425), results[0].Season.Points)
}

func TestSettleEpisodeBatchesCompose(t *testing.T) {
	f := newFixture()
	svc := f.scoringService()

	// Two concurrent batches for a season the user has never scored in:
	// both deltas must land in the aggregate, neither overwritten.
	done := make(chan error, 2)
	for _, episodeID := range []string{"ep20", "ep21"} {
		go func() {
			_, err := svc.SettleEpisode(resolverCtx(), episodeID, "s2",
				[]domain.EpisodePick{{UserID: "alice", Correct: true, Odds: 100}})
			done <- err
		}()
	}
	for range 2 {
		require.NoError(t, <-done)
	}

	p, err := svc.GetProfile(context.Background(), "alice", "s2")
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalCount)
	assert.Equal(t, 2, p.CorrectCount)
	// 200 per episode plus the second episode's streak bonus.
	assert.Equal(t, int64(425), p.Points)
}

func TestSettleEpisodeLockHeld(t *testing.T) {
	f := newFixture()
	svc := f.scoringService()

	unlock, err := f.locks.Acquire(context.Background(), "episode:ep8", time.Minute)
	require.NoError(t, err)
	defer unlock()

	_, err = svc.SettleEpisode(resolverCtx(), "ep8", "s1",
		[]domain.EpisodePick{{UserID: "alice", Correct: true, Odds: 100}})
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestGetProfile(t *testing.T) {
	f := newFixture()
	svc := f.scoringService()

	_, err := svc.SettleEpisode(resolverCtx(), "ep9", "s1", []domain.EpisodePick{
		{UserID: "alice", Correct: true, Odds: 100},
		{UserID: "alice", Correct: false, Odds: 100},
	})
	require.NoError(t, err)

	p, err := svc.GetProfile(context.Background(), "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), p.Points)
	assert.Equal(t, 0.5, p.WinRate)

	// Unknown user reads as zero profile.
	p, err = svc.GetProfile(context.Background(), "nobody", "s1")
	require.NoError(t, err)
	assert.Zero(t, p.Points)
	assert.Zero(t, p.WinRate)
}

func TestDeposit(t *testing.T) {
	f := newFixture()
	svc := f.accountService()

	_, err := svc.Deposit(serviceCtx(), "alice", 100)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Deposit(adminCtx(), "alice", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	a, err := svc.Deposit(adminCtx(), "alice", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), a.Balance)

	a, err = svc.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(250), a.Balance)
}

func TestStakeValidation(t *testing.T) {
	f := newFixture()
	now := time.Now()

	_, err := f.marketService().Create(resolverCtx(), openMarket("ep10", domain.MarketKindPool, now), now)
	require.NoError(t, err)

	stakes := f.stakeService()

	_, err = stakes.Place(context.Background(), "ep10", "alice", 0, 0, 0, false, now)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	// Tendered less than the stake.
	_, err = stakes.Place(context.Background(), "ep10", "alice", 0, 200, 100, false, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Unfunded account.
	_, err = stakes.Place(context.Background(), "ep10", "alice", 0, 200, 0, false, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = f.ledger.Deposit(context.Background(), "alice", 500)
	require.NoError(t, err)

	// Invalid option.
	_, err = stakes.Place(context.Background(), "ep10", "alice", 9, 200, 0, false, now)
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	// Locked market.
	_, err = stakes.Place(context.Background(), "ep10", "alice", 0, 200, 0, false, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrMarketLocked)

	// Points markets are stakeless; custody never enters them.
	_, err = f.marketService().Create(resolverCtx(), openMarket("ep10pts", domain.MarketKindPoints, now), now)
	require.NoError(t, err)
	_, err = stakes.Place(context.Background(), "ep10pts", "alice", 0, 200, 0, false, now)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
