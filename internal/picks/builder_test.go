package picks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/internal/rules"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

type fakeRunRepo struct {
	latest *contracts.Run
	byID   map[uuid.UUID]*contracts.Run
}

func (f *fakeRunRepo) Insert(ctx context.Context, run *contracts.Run) error { return nil }
func (f *fakeRunRepo) MarkSuccess(ctx context.Context, runID uuid.UUID, candidates, picks int) error {
	return nil
}
func (f *fakeRunRepo) MarkFailed(ctx context.Context, runID uuid.UUID, errMsg string) error {
	return nil
}
func (f *fakeRunRepo) Get(ctx context.Context, runID uuid.UUID) (*contracts.Run, error) {
	if r, ok := f.byID[runID]; ok {
		return r, nil
	}
	return nil, errors.New("run not found")
}
func (f *fakeRunRepo) Recent(ctx context.Context, limit int) ([]*contracts.Run, error) {
	return nil, nil
}
func (f *fakeRunRepo) LatestSuccessful(ctx context.Context) (*contracts.Run, error) {
	if f.latest == nil {
		return nil, errors.New("no successful run")
	}
	return f.latest, nil
}
func (f *fakeRunRepo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

type fakeCandidateRepo struct {
	top []*contracts.Candidate
}

func (f *fakeCandidateRepo) SaveBatch(ctx context.Context, candidates []*contracts.Candidate) error {
	return nil
}
func (f *fakeCandidateRepo) ByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*contracts.Candidate, error) {
	return f.top, nil
}
func (f *fakeCandidateRepo) TopN(ctx context.Context, runID uuid.UUID, n int) ([]*contracts.Candidate, error) {
	if len(f.top) > n {
		return f.top[:n], nil
	}
	return f.top, nil
}

type fakeChains struct {
	chains map[string]*contracts.OptionChain
	calls  []string
}

func (f *fakeChains) Chain(ctx context.Context, ticker string, side contracts.OptionSide, strikeCount int) (*contracts.OptionChain, error) {
	f.calls = append(f.calls, ticker)
	ch, ok := f.chains[ticker]
	if !ok {
		return nil, errors.New("chain unavailable for " + ticker)
	}
	return ch, nil
}

type fakePickRepo struct {
	replaced map[contracts.PickAction][]*contracts.Pick
	runID    uuid.UUID
	calls    int
}

func newFakePickRepo() *fakePickRepo {
	return &fakePickRepo{replaced: make(map[contracts.PickAction][]*contracts.Pick)}
}

func (f *fakePickRepo) Replace(ctx context.Context, runID uuid.UUID, action contracts.PickAction, picks []*contracts.Pick) error {
	f.runID = runID
	f.replaced[action] = picks
	f.calls++
	return nil
}

func (f *fakePickRepo) ByRun(ctx context.Context, runID uuid.UUID, action contracts.PickAction) ([]*contracts.Pick, error) {
	return f.replaced[action], nil
}

type fakePositions struct {
	snap *contracts.AccountSnapshot
	err  error
}

func (f *fakePositions) Positions(ctx context.Context) (*contracts.AccountSnapshot, error) {
	return f.snap, f.err
}

type fakeEvents struct {
	exDiv    map[string]time.Time
	earnings map[string]time.Time
}

func (f *fakeEvents) NextExDividend(ctx context.Context, symbol string, now time.Time) (time.Time, bool, error) {
	d, ok := f.exDiv[symbol]
	return d, ok, nil
}

func (f *fakeEvents) NextEarnings(ctx context.Context, symbol string, now time.Time) (time.Time, bool, error) {
	d, ok := f.earnings[symbol]
	return d, ok, nil
}

func testPicksConfig() config.PicksConfig {
	return config.PicksConfig{CSPTopN: 25, CCTopN: 25, StrikeCount: 80}
}

// weeklyChain builds a one-expiration chain dated relative to the real
// clock, since the builders stamp picks with time.Now.
func weeklyChain(ticker string, side contracts.OptionSide, underlying float64, cs ...contracts.OptionContract) *contracts.OptionChain {
	exp := contracts.Expiration{
		Date:      time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 7),
		Contracts: cs,
	}
	ch := &contracts.OptionChain{Ticker: ticker, UnderlyingPrice: underlying}
	if side == contracts.SideCall {
		ch.Calls = []contracts.Expiration{exp}
	} else {
		ch.Puts = []contracts.Expiration{exp}
	}
	return ch
}

func intp(v int) *int { return &v }

func TestCSPBuilder_Build(t *testing.T) {
	run := &contracts.Run{RunID: uuid.New(), Status: contracts.RunStatusSuccess}
	runs := &fakeRunRepo{latest: run}
	cands := &fakeCandidateRepo{top: []*contracts.Candidate{
		{Ticker: "AAPL", Score: 90, Rank: 1},
		{Ticker: "SOON", Score: 85, Rank: 2, EarningsInDays: intp(3)},
		{Ticker: "NOCHAIN", Score: 80, Rank: 3},
	}}
	chains := &fakeChains{chains: map[string]*contracts.OptionChain{
		"AAPL": weeklyChain("AAPL", contracts.SidePut, 150,
			put(145, -0.26, 1.50, 1.55, 800)),
	}}
	pickRepo := newFakePickRepo()

	b := NewCSPBuilder(testPicksConfig(), rules.Default(), runs, cands, chains, pickRepo, logger.NewNop())
	out, err := b.Build(context.Background(), uuid.Nil)
	require.NoError(t, err)

	require.Len(t, out, 1)
	p := out[0]
	assert.Equal(t, "AAPL", p.Ticker)
	assert.Equal(t, contracts.ActionCSP, p.Action)
	assert.Equal(t, run.RunID, p.RunID)
	assert.Equal(t, 145.0, p.Strike)
	assert.Equal(t, 7, p.DTE)
	assert.Equal(t, 0.25, p.TargetDelta)
	assert.InDelta(t, 1.525, p.Premium, 1e-9, "mid of 1.50/1.55")
	assert.InDelta(t, contracts.AnnualizedYieldPct(1.525, 145, 7), p.AnnualizedYield, 1e-9)
	assert.Equal(t, 90, p.Score)
	assert.Equal(t, "primary", p.Metrics["window_tier"])

	// Earnings guard skipped SOON before any chain fetch
	assert.NotContains(t, chains.calls, "SOON")

	assert.Equal(t, run.RunID, pickRepo.runID)
	assert.Len(t, pickRepo.replaced[contracts.ActionCSP], 1)
}

func TestCSPBuilder_ExplicitRunID(t *testing.T) {
	run := &contracts.Run{RunID: uuid.New(), Status: contracts.RunStatusSuccess}
	runs := &fakeRunRepo{byID: map[uuid.UUID]*contracts.Run{run.RunID: run}}
	cands := &fakeCandidateRepo{top: []*contracts.Candidate{{Ticker: "AAPL", Score: 90, Rank: 1}}}
	chains := &fakeChains{chains: map[string]*contracts.OptionChain{
		"AAPL": weeklyChain("AAPL", contracts.SidePut, 150, put(145, -0.26, 1.50, 1.55, 800)),
	}}

	b := NewCSPBuilder(testPicksConfig(), rules.Default(), runs, cands, chains, newFakePickRepo(), logger.NewNop())
	out, err := b.Build(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = b.Build(context.Background(), uuid.New())
	assert.Error(t, err, "unknown run id fails instead of silently using latest")
}

func TestCSPBuilder_NoCandidates(t *testing.T) {
	runs := &fakeRunRepo{latest: &contracts.Run{RunID: uuid.New()}}
	b := NewCSPBuilder(testPicksConfig(), rules.Default(), runs, &fakeCandidateRepo{}, &fakeChains{}, newFakePickRepo(), logger.NewNop())

	_, err := b.Build(context.Background(), uuid.Nil)
	assert.Error(t, err)
}

func TestCCBuilder_ExDividendGuard(t *testing.T) {
	run := &contracts.Run{RunID: uuid.New(), Status: contracts.RunStatusSuccess}
	runs := &fakeRunRepo{latest: run}

	positions := &fakePositions{snap: &contracts.AccountSnapshot{
		Positions: []contracts.Position{
			{Symbol: "KO", AssetType: "EQUITY", Quantity: 200},
			{Symbol: "MSFT", AssetType: "EQUITY", Quantity: 100},
			{Symbol: "ODD", AssetType: "EQUITY", Quantity: 50}, // under a round lot
		},
	}}

	chains := &fakeChains{chains: map[string]*contracts.OptionChain{
		"KO":   weeklyChain("KO", contracts.SideCall, 60, call(62, 0.25, 0.40, 0.45, 400)),
		"MSFT": weeklyChain("MSFT", contracts.SideCall, 400, call(410, 0.25, 2.00, 2.10, 900)),
	}}

	// KO goes ex-dividend tomorrow, inside the 2-day guard
	events := &fakeEvents{exDiv: map[string]time.Time{
		"KO": time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1),
	}}

	pickRepo := newFakePickRepo()
	b := NewCCBuilder(testPicksConfig(), rules.Default(), runs, positions, chains, pickRepo, events, logger.NewNop())

	out, err := b.Build(context.Background(), uuid.Nil)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "MSFT", out[0].Ticker)
	assert.Equal(t, contracts.ActionCC, out[0].Action)
	assert.NotContains(t, chains.calls, "KO", "guard fires before the chain fetch")
	assert.NotContains(t, chains.calls, "ODD")
}

func TestCCBuilder_EarningsGuard(t *testing.T) {
	run := &contracts.Run{RunID: uuid.New()}
	runs := &fakeRunRepo{latest: run}
	positions := &fakePositions{snap: &contracts.AccountSnapshot{
		Positions: []contracts.Position{{Symbol: "NVDA", AssetType: "EQUITY", Quantity: 100}},
	}}
	events := &fakeEvents{earnings: map[string]time.Time{
		"NVDA": time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 5),
	}}

	b := NewCCBuilder(testPicksConfig(), rules.Default(), runs, positions, &fakeChains{}, newFakePickRepo(), events, logger.NewNop())
	out, err := b.Build(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCCBuilder_TestTickersBypassPositions(t *testing.T) {
	run := &contracts.Run{RunID: uuid.New()}
	runs := &fakeRunRepo{latest: run}
	positions := &fakePositions{err: errors.New("broker unreachable")}
	chains := &fakeChains{chains: map[string]*contracts.OptionChain{
		"F": weeklyChain("F", contracts.SideCall, 12, call(13, 0.25, 0.15, 0.17, 1000)),
	}}

	cfg := testPicksConfig()
	cfg.CCTestTickers = "f, F, ,GM"

	b := NewCCBuilder(cfg, rules.Default(), runs, positions, chains, newFakePickRepo(), nil, logger.NewNop())
	out, err := b.Build(context.Background(), uuid.Nil)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "F", out[0].Ticker)
	assert.Equal(t, []string{"F", "GM"}, chains.calls, "test list deduped and uppercased")
}

func TestCCBuilder_ReplaceCalledEvenWhenEmpty(t *testing.T) {
	run := &contracts.Run{RunID: uuid.New()}
	runs := &fakeRunRepo{latest: run}
	positions := &fakePositions{snap: &contracts.AccountSnapshot{}}
	pickRepo := newFakePickRepo()

	b := NewCCBuilder(testPicksConfig(), rules.Default(), runs, positions, &fakeChains{}, pickRepo, nil, logger.NewNop())
	out, err := b.Build(context.Background(), uuid.Nil)
	require.NoError(t, err)

	assert.Empty(t, out)
	assert.Equal(t, 1, pickRepo.calls, "stale picks from a previous build are cleared")
}
