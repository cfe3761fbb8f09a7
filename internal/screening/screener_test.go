package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/logger"
	"github.com/wheelops/wheelhouse/pkg/redis"
)

type fakeUniverse struct {
	tickers []string
	err     error
}

func (f *fakeUniverse) Tickers(ctx context.Context) ([]string, error) {
	return f.tickers, f.err
}

type fakeMarket struct {
	features map[string]*contracts.Features
}

func (f *fakeMarket) Features(ctx context.Context, ticker string) (*contracts.Features, error) {
	feat, ok := f.features[ticker]
	if !ok {
		return nil, errors.New("no data for " + ticker)
	}
	cp := *feat
	return &cp, nil
}

type fakeRSI struct {
	values map[string]float64
	calls  int
}

func (f *fakeRSI) Lookup(ctx context.Context, ticker string) (*float64, error) {
	f.calls++
	if v, ok := f.values[ticker]; ok {
		return &v, nil
	}
	return nil, nil
}

type fakeRunRepo struct {
	runs map[uuid.UUID]*contracts.Run
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]*contracts.Run)}
}

func (f *fakeRunRepo) Insert(ctx context.Context, run *contracts.Run) error {
	cp := *run
	f.runs[run.RunID] = &cp
	return nil
}

func (f *fakeRunRepo) MarkSuccess(ctx context.Context, runID uuid.UUID, candidates, picks int) error {
	run, ok := f.runs[runID]
	if !ok || run.Status != contracts.RunStatusRunning {
		return errors.New("run not in running state")
	}
	now := time.Now().UTC()
	run.Status = contracts.RunStatusSuccess
	run.FinishedAt = &now
	run.CandidatesCount = candidates
	run.PicksCount = picks
	return nil
}

func (f *fakeRunRepo) MarkFailed(ctx context.Context, runID uuid.UUID, msg string) error {
	run, ok := f.runs[runID]
	if !ok || run.Status != contracts.RunStatusRunning {
		return errors.New("run not in running state")
	}
	now := time.Now().UTC()
	run.Status = contracts.RunStatusFailed
	run.FinishedAt = &now
	run.Error = msg
	return nil
}

func (f *fakeRunRepo) Get(ctx context.Context, runID uuid.UUID) (*contracts.Run, error) {
	run, ok := f.runs[runID]
	if !ok {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (f *fakeRunRepo) Recent(ctx context.Context, limit int) ([]*contracts.Run, error) {
	out := make([]*contracts.Run, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRunRepo) LatestSuccessful(ctx context.Context) (*contracts.Run, error) {
	var latest *contracts.Run
	for _, r := range f.runs {
		if r.Status != contracts.RunStatusSuccess || r.IsTrackerRun() {
			continue
		}
		if latest == nil || r.StartedAt.After(latest.StartedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, errors.New("no successful run")
	}
	return latest, nil
}

func (f *fakeRunRepo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	n := 0
	cutoff := time.Now().UTC().Add(-olderThan)
	for _, r := range f.runs {
		if r.Status == contracts.RunStatusRunning && r.StartedAt.Before(cutoff) {
			r.Status = contracts.RunStatusFailed
			r.Error = "reclaimed: stuck in running beyond staleness timeout"
			n++
		}
	}
	return n, nil
}

type fakeCandidateRepo struct {
	saved []*contracts.Candidate
}

func (f *fakeCandidateRepo) SaveBatch(ctx context.Context, candidates []*contracts.Candidate) error {
	f.saved = append(f.saved, candidates...)
	return nil
}

func (f *fakeCandidateRepo) ByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*contracts.Candidate, error) {
	var out []*contracts.Candidate
	for _, c := range f.saved {
		if c.RunID == runID {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCandidateRepo) TopN(ctx context.Context, runID uuid.UUID, n int) ([]*contracts.Candidate, error) {
	return f.ByRun(ctx, runID, n)
}

type fakeTickerRepo struct {
	upserted []*contracts.Features
}

func (f *fakeTickerRepo) UpsertBatch(ctx context.Context, feats []*contracts.Features) error {
	f.upserted = append(f.upserted, feats...)
	return nil
}

type fakeApprovedRepo struct {
	synced []*contracts.Candidate
	runID  uuid.UUID
}

func (f *fakeApprovedRepo) Sync(ctx context.Context, runID uuid.UUID, top []*contracts.Candidate) error {
	f.runID = runID
	f.synced = top
	return nil
}

func (f *fakeApprovedRepo) Approved(ctx context.Context) ([]string, error) {
	var out []string
	for _, c := range f.synced {
		out = append(out, c.Ticker)
	}
	return out, nil
}

func testLock(t *testing.T) *redis.Lock {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewLock(client, "wheelhouse:test")
}

func newTestScreener(t *testing.T, deps ScreenerDeps) (*Screener, *fakeRunRepo) {
	t.Helper()
	runs := newFakeRunRepo()
	if deps.Tracker == nil {
		deps.Tracker = NewTracker(runs, logger.NewNop())
	}
	if deps.Lock == nil {
		deps.Lock = testLock(t)
	}
	return NewScreener(testScreenerConfig(), "test-build", deps, logger.NewNop()), runs
}

func TestScreener_Run_GatesAndRanks(t *testing.T) {
	market := &fakeMarket{features: map[string]*contracts.Features{
		"AAPL": {
			Ticker:    "AAPL",
			Name:      "Apple Inc.",
			Price:     f64(150),
			MarketCap: i64(3_000_000_000_000),
			ROE:       f64(0.30),
		},
		// Excluded: price below the floor
		"XYZ": {
			Ticker:    "XYZ",
			Price:     f64(2),
			MarketCap: i64(10_000_000_000),
		},
		"MSFT": {
			Ticker:    "MSFT",
			Name:      "Microsoft",
			Price:     f64(400),
			MarketCap: i64(2_800_000_000_000),
			ROE:       f64(0.30),
		},
	}}

	cands := &fakeCandidateRepo{}
	tickers := &fakeTickerRepo{}
	approved := &fakeApprovedRepo{}

	s, runs := newTestScreener(t, ScreenerDeps{
		Universe:   &fakeUniverse{tickers: []string{"XYZ", "MSFT", "AAPL", "GONE"}},
		Market:     market,
		RSI:        &fakeRSI{},
		Candidates: cands,
		Tickers:    tickers,
		Approved:   approved,
	})

	run, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, contracts.RunStatusSuccess, run.Status)
	assert.Equal(t, 4, run.UniverseSize)
	assert.Equal(t, 2, run.CandidatesCount, "XYZ gated out, GONE errored")

	stored, err := runs.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, contracts.RunStatusSuccess, stored.Status)
	assert.NotNil(t, stored.FinishedAt)

	require.Len(t, cands.saved, 2)
	// Equal scores: ticker ascending breaks the tie
	assert.Equal(t, "AAPL", cands.saved[0].Ticker)
	assert.Equal(t, 1, cands.saved[0].Rank)
	assert.Equal(t, "MSFT", cands.saved[1].Ticker)
	assert.Equal(t, 2, cands.saved[1].Rank)
	for _, c := range cands.saved {
		assert.Equal(t, run.RunID, c.RunID)
	}

	assert.Len(t, tickers.upserted, 2)
	assert.Equal(t, run.RunID, approved.runID)
	assert.Len(t, approved.synced, 2)
}

func TestScreener_Run_ApprovedTopNCapped(t *testing.T) {
	features := make(map[string]*contracts.Features)
	var universe []string
	for _, tk := range []string{"AAA", "BBB", "CCC", "DDD", "EEE"} {
		universe = append(universe, tk)
		features[tk] = &contracts.Features{
			Ticker:    tk,
			Price:     f64(50),
			MarketCap: i64(10_000_000_000),
		}
	}

	approved := &fakeApprovedRepo{}
	deps := ScreenerDeps{
		Universe:   &fakeUniverse{tickers: universe},
		Market:     &fakeMarket{features: features},
		RSI:        &fakeRSI{},
		Candidates: &fakeCandidateRepo{},
		Tickers:    &fakeTickerRepo{},
		Approved:   approved,
	}

	runs := newFakeRunRepo()
	cfg := testScreenerConfig()
	cfg.ApprovedTopN = 3
	deps.Tracker = NewTracker(runs, logger.NewNop())
	deps.Lock = testLock(t)
	s := NewScreener(cfg, "test-build", deps, logger.NewNop())

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, approved.synced, 3)
	assert.Equal(t, "AAA", approved.synced[0].Ticker)
}

func TestScreener_Run_UniverseFailureHasNoRun(t *testing.T) {
	s, runs := newTestScreener(t, ScreenerDeps{
		Universe:   &fakeUniverse{err: errors.New("screener endpoint down")},
		Market:     &fakeMarket{},
		RSI:        &fakeRSI{},
		Candidates: &fakeCandidateRepo{},
		Tickers:    &fakeTickerRepo{},
		Approved:   &fakeApprovedRepo{},
	})

	_, err := s.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, runs.runs, "no run record when the universe cannot be built")
}

func TestScreener_Run_CancelMarksFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	market := &fakeMarket{features: map[string]*contracts.Features{
		"AAPL": {Ticker: "AAPL", Price: f64(150), MarketCap: i64(3_000_000_000_000)},
	}}
	cancelRSI := &cancelingRSI{cancel: cancel}

	s, runs := newTestScreener(t, ScreenerDeps{
		Universe:   &fakeUniverse{tickers: []string{"AAPL", "MSFT"}},
		Market:     market,
		RSI:        cancelRSI,
		Candidates: &fakeCandidateRepo{},
		Tickers:    &fakeTickerRepo{},
		Approved:   &fakeApprovedRepo{},
	})

	run, err := s.Run(ctx)
	require.Error(t, err)
	require.NotNil(t, run)

	stored, err := runs.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, contracts.RunStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

// cancelingRSI cancels the run context on first use, simulating shutdown
// mid-universe.
type cancelingRSI struct {
	cancel context.CancelFunc
}

func (c *cancelingRSI) Lookup(ctx context.Context, ticker string) (*float64, error) {
	c.cancel()
	return nil, nil
}

func TestTracker_FailTruncatesError(t *testing.T) {
	runs := newFakeRunRepo()
	tracker := NewTracker(runs, logger.NewNop())

	run, err := tracker.Begin(context.Background(), 10, "test-build", "")
	require.NoError(t, err)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, tracker.Fail(context.Background(), run.RunID, errors.New(string(long))))

	stored, err := runs.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Len(t, stored.Error, contracts.MaxRunErrorLen)
}

func TestTracker_LatestSuccessfulSkipsTrackerRuns(t *testing.T) {
	runs := newFakeRunRepo()
	tracker := NewTracker(runs, logger.NewNop())
	ctx := context.Background()

	weekly, err := tracker.Begin(ctx, 100, "b1", "")
	require.NoError(t, err)
	require.NoError(t, tracker.Succeed(ctx, weekly.RunID, 40, 0))

	daily, err := tracker.Begin(ctx, 0, "b1", contracts.NoteDailyTracker)
	require.NoError(t, err)
	require.NoError(t, tracker.Succeed(ctx, daily.RunID, 0, 0))

	got, err := tracker.LatestSuccessful(ctx)
	require.NoError(t, err)
	assert.Equal(t, weekly.RunID, got.RunID, "tracker runs never become the pick source")
}
