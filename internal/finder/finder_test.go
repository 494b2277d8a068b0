package finder

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arbitrage/internal/models"
	"arbitrage/internal/schedule"
)

type stubScheduler struct {
	verdict schedule.Verdict
}

func (s stubScheduler) Verify(ctx context.Context, sport, team, opponent string) schedule.Verdict {
	return s.verdict
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func cryptoPair(yesAskA, noAskB int64, resolution time.Time) *models.MatchedPair {
	a := &models.Market{
		Platform: models.PlatformA, PlatformID: "a1", Category: models.CategoryCrypto,
		YesAsk: models.PresentPrice(d(yesAskA)), ResolutionAt: resolution,
	}
	b := &models.Market{
		Platform: models.PlatformB, PlatformID: "b1", Category: models.CategoryCrypto,
		NoAsk: models.PresentPrice(d(noAskB)), ResolutionAt: resolution,
	}
	return &models.MatchedPair{ID: "p1", Category: models.CategoryCrypto, VenueA: a, VenueB: b}
}

func tierBounds() []models.TierBound {
	return []models.TierBound{
		{Name: models.TierLow, Lo: d(0), Hi: d(2), HasHi: true},
		{Name: models.TierMid, Lo: d(2), Hi: d(5), HasHi: true},
		{Name: models.TierHigh, Lo: d(5), Hi: d(10), HasHi: true},
		{Name: models.TierUltraHigh, Lo: d(10), HasHi: false},
	}
}

func TestFinder_FindsProfitableSpread(t *testing.T) {
	pair := cryptoPair(40, 50, time.Now().Add(48*time.Hour)) // combined 90c, spread 10c
	f := NewFinder(Config{TierBounds: tierBounds()}, nil, zap.NewNop())

	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(ops))
	}
	op := ops[0]
	if !op.SpreadCents.Equal(d(10)) {
		t.Fatalf("expected spread 10c, got %s", op.SpreadCents.String())
	}
	if op.Tier != models.TierUltraHigh {
		t.Fatalf("expected tier UltraHigh for spread=10, got %s", op.Tier)
	}
	if op.VenueASide != models.SideYes || op.VenueBSide != models.SideNo {
		t.Fatalf("expected strategy YES/NO, got %s/%s", op.VenueASide, op.VenueBSide)
	}
}

func TestFinder_NoOpportunityWhenCombinedAtOrAboveFaceValue(t *testing.T) {
	pair := cryptoPair(55, 45, time.Now().Add(48*time.Hour)) // combined 100c exactly
	f := NewFinder(Config{TierBounds: tierBounds()}, nil, zap.NewNop())

	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 0 {
		t.Fatalf("expected no opportunity at exactly face value, got %d", len(ops))
	}
}

func TestFinder_DropsBelowMinSpread(t *testing.T) {
	pair := cryptoPair(48, 49, time.Now().Add(48*time.Hour)) // spread 3c
	f := NewFinder(Config{TierBounds: tierBounds(), MinSpreadCents: d(5)}, nil, zap.NewNop())

	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 0 {
		t.Fatalf("expected spread below threshold to be dropped, got %d", len(ops))
	}
}

func TestFinder_DropsTooCloseToResolution(t *testing.T) {
	pair := cryptoPair(40, 50, time.Now().Add(30*time.Minute))
	f := NewFinder(Config{TierBounds: tierBounds(), MinHoursToClose: 1}, nil, zap.NewNop())

	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 0 {
		t.Fatalf("expected pair resolving too soon to be dropped, got %d", len(ops))
	}
}

func TestFinder_MissingPriceIsSkipped(t *testing.T) {
	a := &models.Market{Platform: models.PlatformA, Category: models.CategoryCrypto, ResolutionAt: time.Now().Add(48 * time.Hour)}
	b := &models.Market{Platform: models.PlatformB, Category: models.CategoryCrypto, NoAsk: models.PresentPrice(d(50)), ResolutionAt: time.Now().Add(48 * time.Hour)}
	pair := &models.MatchedPair{Category: models.CategoryCrypto, VenueA: a, VenueB: b}

	f := NewFinder(Config{TierBounds: tierBounds()}, nil, zap.NewNop())
	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 0 {
		t.Fatalf("expected missing ask to skip the pair, got %d", len(ops))
	}
}

func TestFinder_SportsNotFoundDropsUnlessAllowed(t *testing.T) {
	resolution := time.Now().Add(48 * time.Hour)
	a := &models.Market{Platform: models.PlatformA, Category: models.CategorySports, Sport: "csgo", Team: "liquid", Opponent: "navi", YesAsk: models.PresentPrice(d(40)), ResolutionAt: resolution}
	b := &models.Market{Platform: models.PlatformB, Category: models.CategorySports, NoAsk: models.PresentPrice(d(50)), ResolutionAt: resolution}
	pair := &models.MatchedPair{Category: models.CategorySports, VenueA: a, VenueB: b}

	f := NewFinder(Config{TierBounds: tierBounds()}, stubScheduler{verdict: schedule.VerdictNotFound}, zap.NewNop())
	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 0 {
		t.Fatalf("expected NotFound to drop the pair by default, got %d", len(ops))
	}

	fAllow := NewFinder(Config{TierBounds: tierBounds(), ScheduleAllowNotFound: true}, stubScheduler{verdict: schedule.VerdictNotFound}, zap.NewNop())
	ops = fAllow.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 1 {
		t.Fatalf("expected NotFound to be allowed when configured, got %d", len(ops))
	}
}

func TestFinder_SportsUnknownAlwaysAllows(t *testing.T) {
	resolution := time.Now().Add(48 * time.Hour)
	a := &models.Market{Platform: models.PlatformA, Category: models.CategorySports, Sport: "csgo", Team: "liquid", Opponent: "navi", YesAsk: models.PresentPrice(d(40)), ResolutionAt: resolution}
	b := &models.Market{Platform: models.PlatformB, Category: models.CategorySports, NoAsk: models.PresentPrice(d(50)), ResolutionAt: resolution}
	pair := &models.MatchedPair{Category: models.CategorySports, VenueA: a, VenueB: b}

	f := NewFinder(Config{TierBounds: tierBounds()}, stubScheduler{verdict: schedule.VerdictUnknown}, zap.NewNop())
	ops := f.Evaluate(context.Background(), []*models.MatchedPair{pair})
	if len(ops) != 1 {
		t.Fatalf("expected Unknown verdict to allow the pair, got %d", len(ops))
	}
}

func TestFinder_SortsBySpreadDescending(t *testing.T) {
	resolution := time.Now().Add(48 * time.Hour)
	small := cryptoPair(48, 49, resolution)  // spread 3
	large := cryptoPair(30, 50, resolution)  // spread 20
	medium := cryptoPair(40, 50, resolution) // spread 10

	f := NewFinder(Config{TierBounds: tierBounds()}, nil, zap.NewNop())
	ops := f.Evaluate(context.Background(), []*models.MatchedPair{small, large, medium})
	if len(ops) != 3 {
		t.Fatalf("expected 3 opportunities, got %d", len(ops))
	}
	if !ops[0].SpreadCents.Equal(d(20)) || !ops[1].SpreadCents.Equal(d(10)) || !ops[2].SpreadCents.Equal(d(3)) {
		t.Fatalf("expected spreads sorted descending, got %v, %v, %v", ops[0].SpreadCents, ops[1].SpreadCents, ops[2].SpreadCents)
	}
}
