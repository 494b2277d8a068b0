package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arbitrage/internal/finder"
	"arbitrage/internal/matcher"
	"arbitrage/internal/models"
	"arbitrage/internal/venue"
)

func testMarket(platform models.Platform, id string, ask int64) *models.Market {
	return &models.Market{
		Platform:     platform,
		PlatformID:   id,
		Category:     models.CategoryCrypto,
		Asset:        "BTC",
		Direction:    models.Direction("above"),
		Threshold:    decimal.NewFromInt(100000),
		ResolutionAt: time.Now().Add(48 * time.Hour),
		YesAsk:       models.PresentPrice(decimal.NewFromInt(ask)),
		YesAskDepth:  int64Ptr(100),
	}
}

func int64Ptr(v int64) *int64 { return &v }

func testDeps(t *testing.T, exec executor) (Runner, *fakeVenue, *fakeVenue) {
	t.Helper()

	aMarket := testMarket(models.PlatformA, "A-1", 40)
	bMarket := testMarket(models.PlatformB, "B-1", 45)
	// The finder pairs Venue-A YES with Venue-B NO, so B needs a NO quote.
	bMarket.NoAsk = models.PresentPrice(decimal.NewFromInt(55))

	a := &fakeVenue{platform: models.PlatformA, ListMarketsFn: func(ctx context.Context, opts venue.ListOptions) ([]*models.Market, error) {
		return []*models.Market{aMarket}, nil
	}}
	b := &fakeVenue{platform: models.PlatformB, ListMarketsFn: func(ctx context.Context, opts venue.ListOptions) ([]*models.Market, error) {
		return []*models.Market{bMarket}, nil
	}}

	f := finder.NewFinder(finder.Config{MinHoursToClose: 1}, nil, zap.NewNop())

	r, err := NewRunner(Config{MatcherCfg: matcher.Config{CryptoGateEnabled: true}}, Deps{
		VenueA:   a,
		VenueB:   b,
		Finder:   f,
		Executor: exec,
		Log:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected error building runner: %v", err)
	}

	return *r, a, b
}

func TestRunner_SlowRefreshMatchesPairs(t *testing.T) {
	r, _, _ := testDeps(t, nil)

	if err := r.slowRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.mu.RLock()
	count := len(r.pairs)
	r.mu.RUnlock()

	if count != 1 {
		t.Fatalf("expected 1 matched pair, got %d", count)
	}
}

func TestRunner_FastPollExecutesSurfacedOpportunities(t *testing.T) {
	exec := &fakeExecutor{result: models.ExecutionResult{Status: models.StatusFilled, NetProfitUSD: decimal.NewFromFloat(0.8)}}
	r, _, _ := testDeps(t, exec)

	if err := r.slowRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.fastPoll(context.Background())

	if exec.calls != 1 {
		t.Fatalf("expected executor to be called once, got %d", exec.calls)
	}
}

func TestRunner_FastPollNoOpportunitiesSkipsExecutor(t *testing.T) {
	exec := &fakeExecutor{result: models.ExecutionResult{Status: models.StatusFilled}}
	r, a, _ := testDeps(t, exec)

	// Re-point venue A to a market whose ask leaves no spread (combined >= 100).
	a.ListMarketsFn = func(ctx context.Context, opts venue.ListOptions) ([]*models.Market, error) {
		return []*models.Market{testMarket(models.PlatformA, "A-1", 60)}, nil
	}

	if err := r.slowRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.fastPoll(context.Background())

	if exec.calls != 0 {
		t.Fatalf("expected no executor calls, got %d", exec.calls)
	}
}

func TestNDJSONSidecar_AppendsOneLinePerOpportunity(t *testing.T) {
	path := t.TempDir() + "/opportunities.ndjson"
	sc, err := newNDJSONSidecar(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sc.Close()

	op := &models.Opportunity{
		ID:         "op-1",
		DetectedAt: time.Now(),
		Pair: &models.MatchedPair{
			VenueA: testMarket(models.PlatformA, "A-1", 40),
			VenueB: testMarket(models.PlatformB, "B-1", 45),
		},
		VenueASide:  models.SideYes,
		VenueBSide:  models.SideNo,
		SpreadCents: decimal.NewFromInt(15),
		Tier:        models.TierLow,
	}

	if err := sc.Append(op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading sidecar: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty sidecar file")
	}
}
