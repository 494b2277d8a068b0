package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arbitrage/internal/models"
	"arbitrage/internal/sizing"
	"arbitrage/internal/venue"
)

func cents(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testOpportunity() (*models.Opportunity, *models.Market, *models.Market) {
	a := &models.Market{Platform: models.PlatformA, PlatformID: "a-market-1"}
	b := &models.Market{Platform: models.PlatformB, PlatformID: "b-market-1", YesTokenID: "token-yes-1"}
	pair := &models.MatchedPair{ID: "pair-1", VenueA: a, VenueB: b}
	op := &models.Opportunity{
		ID:              "op-1",
		Pair:            pair,
		VenueASide:      models.SideYes,
		VenueBSide:      models.SideYes,
		VenueACostCents: cents(40),
		VenueADepth:     int64Ptr(50),
		VenueBLadder:    []models.LadderLevel{{PriceCents: cents(50), Units: 50}},
	}
	return op, a, b
}

func int64Ptr(v int64) *int64 { return &v }

func newTestExecutor(venueA, venueB venue.Client) *Executor {
	return NewExecutor(venueA, venueB, sizing.Config{}, ExecutorConfig{
		NormalCooldownCycles: 2,
		PerMarketUnitCap:     1000,
		VenueATakerFeeRate:   decimal.NewFromFloat(0.05),
	}, zap.NewNop())
}

// Scenario: both legs fill completely. 10 units @ 40c on Venue-A (fee 5%)
// plus 10 units @ 50c on Venue-B; payout is 10 units * $1 = $10.
func TestExecute_HappyPathFill(t *testing.T) {
	op, _, _ := testOpportunity()

	venueA := &fakeVenue{platform: models.PlatformA}
	venueA.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		return venue.OrderResult{OrderID: "a-order-1"}, nil
	}
	venueA.GetOrderFunc = func(ctx context.Context, orderID string) (venue.OrderStatus, error) {
		return venue.OrderStatus{OrderID: orderID, FillCount: 10, Remaining: 0, Status: "filled"}, nil
	}

	venueB := &fakeVenue{platform: models.PlatformB}
	venueB.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		if req.Units != 10 {
			t.Fatalf("expected venue-b leg sized to the confirmed venue-a fill (10), got %d", req.Units)
		}
		return venue.OrderResult{OrderID: "b-order-1"}, nil
	}
	venueB.GetActualFillFunc = func(ctx context.Context, orderID string, estimated int64) (int64, error) {
		return estimated, nil
	}

	result := newTestExecutor(venueA, venueB).Execute(context.Background(), op)

	if result.Status != models.StatusFilled {
		t.Fatalf("expected filled, got %s (reason %s)", result.Status, result.Reason)
	}
	if result.Units != 10 {
		t.Fatalf("expected 10 units, got %d", result.Units)
	}
	wantACost := cents(40).Mul(decimal.NewFromInt(10)).Div(decimal.NewFromInt(100)) // $4.00
	if !result.VenueACostUSD.Equal(wantACost) {
		t.Fatalf("expected venue-a cost $4.00, got %s", result.VenueACostUSD.String())
	}
	wantFee := wantACost.Mul(decimal.NewFromFloat(0.05)) // $0.20
	if !result.VenueAFeeUSD.Equal(wantFee) {
		t.Fatalf("expected fee $0.20, got %s", result.VenueAFeeUSD.String())
	}
	wantBCost := cents(50).Mul(decimal.NewFromInt(10)).Div(decimal.NewFromInt(100)) // $5.00
	if !result.VenueBCostUSD.Equal(wantBCost) {
		t.Fatalf("expected venue-b cost $5.00, got %s", result.VenueBCostUSD.String())
	}
	wantTotal := wantACost.Add(wantFee).Add(wantBCost) // $9.20
	if !result.TotalCostUSD.Equal(wantTotal) {
		t.Fatalf("expected total cost $9.20, got %s", result.TotalCostUSD.String())
	}
	wantNet := decimal.NewFromInt(10).Sub(wantTotal) // $0.80
	if !result.NetProfitUSD.Equal(wantNet) {
		t.Fatalf("expected net profit $0.80, got %s", result.NetProfitUSD.String())
	}
}

// Scenario: the venue-a leg fills, but the venue-b hedge leg fills zero.
// The executor must unwind the full venue-a position and report StatusUnwound.
func TestExecute_ZeroFillTriggersUnwind(t *testing.T) {
	op, _, _ := testOpportunity()

	var unwindReq venue.OrderRequest
	venueA := &fakeVenue{platform: models.PlatformA}
	venueA.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		if req.Action == venue.ActionSell {
			unwindReq = req
			return venue.OrderResult{OrderID: "a-unwind-1"}, nil
		}
		return venue.OrderResult{OrderID: "a-order-1"}, nil
	}
	venueA.GetOrderFunc = func(ctx context.Context, orderID string) (venue.OrderStatus, error) {
		return venue.OrderStatus{OrderID: orderID, FillCount: 10, Remaining: 0, Status: "filled"}, nil
	}
	venueA.GetMarketPriceFunc = func(ctx context.Context, instrument string, side models.Side) (models.Price, error) {
		return models.PresentPrice(cents(38)), nil
	}

	venueB := &fakeVenue{platform: models.PlatformB}
	venueB.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		return venue.OrderResult{OrderID: "b-order-1"}, nil
	}
	venueB.GetActualFillFunc = func(ctx context.Context, orderID string, estimated int64) (int64, error) {
		return 0, nil
	}

	result := newTestExecutor(venueA, venueB).Execute(context.Background(), op)

	if result.Status != models.StatusUnwound {
		t.Fatalf("expected unwound, got %s", result.Status)
	}
	if result.Reason != models.ReasonBZeroFill {
		t.Fatalf("expected b_zero_fill reason, got %s", result.Reason)
	}
	wantRecovered := cents(38).Mul(decimal.NewFromInt(10)).Div(decimal.NewFromInt(100)) // $3.80
	if !result.UnwindRecoveredUSD.Equal(wantRecovered) {
		t.Fatalf("expected $3.80 recovered, got %s", result.UnwindRecoveredUSD.String())
	}
	if unwindReq.Side != op.VenueASide {
		t.Fatalf("expected unwind to sell the same side %s, got %s", op.VenueASide, unwindReq.Side)
	}
}

// Scenario: the venue-a leg only partially fills (6 of 10 units). The
// venue-b leg must be sized to the confirmed fill, not the original plan.
func TestExecute_PartialVenueAFillSizesVenueBToActualFill(t *testing.T) {
	op, _, _ := testOpportunity()

	venueA := &fakeVenue{platform: models.PlatformA}
	venueA.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		return venue.OrderResult{OrderID: "a-order-1"}, nil
	}
	venueA.GetOrderFunc = func(ctx context.Context, orderID string) (venue.OrderStatus, error) {
		return venue.OrderStatus{OrderID: orderID, FillCount: 6, Remaining: 4, Status: "partially_filled"}, nil
	}

	var bUnitsRequested int64
	venueB := &fakeVenue{platform: models.PlatformB}
	venueB.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		bUnitsRequested = req.Units
		return venue.OrderResult{OrderID: "b-order-1"}, nil
	}
	venueB.GetActualFillFunc = func(ctx context.Context, orderID string, estimated int64) (int64, error) {
		return estimated, nil
	}

	result := newTestExecutor(venueA, venueB).Execute(context.Background(), op)

	if result.Status != models.StatusFilled {
		t.Fatalf("expected filled, got %s (reason %s)", result.Status, result.Reason)
	}
	if bUnitsRequested != 6 {
		t.Fatalf("expected venue-b order sized to the confirmed 6-unit venue-a fill, got %d", bUnitsRequested)
	}
	if len(venueA.cancelCalls) != 1 {
		t.Fatalf("expected the resting 4-unit remainder to be cancelled, got %d cancel calls", len(venueA.cancelCalls))
	}
}

// Scenario: the venue-a leg is rejected with a conflict; the pair must be
// cooled down for the longer conflict-specific duration.
func TestExecute_AConflictAppliesLongerCooldown(t *testing.T) {
	op, _, _ := testOpportunity()

	venueA := &fakeVenue{platform: models.PlatformA}
	venueA.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		return venue.OrderResult{}, venue.ErrConflict
	}
	venueB := &fakeVenue{platform: models.PlatformB}

	executor := newTestExecutor(venueA, venueB)
	result := executor.Execute(context.Background(), op)

	if result.Status != models.StatusSkipped || result.Reason != models.ReasonAConflict {
		t.Fatalf("expected skip with a_conflict, got %s/%s", result.Status, result.Reason)
	}

	key := op.Pair.Key()
	executor.mu.Lock()
	until := executor.cooldownUntil[key]
	executor.mu.Unlock()
	wantUntil := executor.cfg.AConflictCooldownCycles
	if until != wantUntil {
		t.Fatalf("expected cooldown until cycle %d (6x normal), got %d", wantUntil, until)
	}
}

// Scenario: a pair still inside its cooldown window is skipped without
// touching either venue.
func TestExecute_SkipsWhileOnCooldown(t *testing.T) {
	op, _, _ := testOpportunity()

	venueA := &fakeVenue{platform: models.PlatformA}
	venueA.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		t.Fatal("venue-a should not be touched while on cooldown")
		return venue.OrderResult{}, nil
	}
	venueB := &fakeVenue{platform: models.PlatformB}

	executor := newTestExecutor(venueA, venueB)
	executor.setCooldown(op.Pair.Key(), 5)

	result := executor.Execute(context.Background(), op)
	if result.Status != models.StatusSkipped || result.Reason != models.ReasonOnCooldown {
		t.Fatalf("expected skip with on_cooldown, got %s/%s", result.Status, result.Reason)
	}
}

// Scenario: the per-market unit cap is already exhausted.
func TestExecute_SkipsAtMarketCap(t *testing.T) {
	op, _, _ := testOpportunity()

	venueA := &fakeVenue{platform: models.PlatformA}
	venueB := &fakeVenue{platform: models.PlatformB}

	executor := newTestExecutor(venueA, venueB)
	executor.cfg.PerMarketUnitCap = 5
	executor.addUnitTally(op.Pair.Key(), 5)

	result := executor.Execute(context.Background(), op)
	if result.Status != models.StatusSkipped || result.Reason != models.ReasonMarketCapReached {
		t.Fatalf("expected skip with market_cap_reached, got %s/%s", result.Status, result.Reason)
	}
}

func TestExecute_ALegFailureAppliesShortCooldown(t *testing.T) {
	op, _, _ := testOpportunity()

	venueA := &fakeVenue{platform: models.PlatformA}
	venueA.PlaceOrderFunc = func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
		return venue.OrderResult{}, errors.New("network timeout")
	}
	venueB := &fakeVenue{platform: models.PlatformB}

	executor := newTestExecutor(venueA, venueB)
	result := executor.Execute(context.Background(), op)

	if result.Status != models.StatusSkipped || result.Reason != models.ReasonALegFailed {
		t.Fatalf("expected skip with a_leg_failed, got %s/%s", result.Status, result.Reason)
	}

	key := op.Pair.Key()
	executor.mu.Lock()
	until := executor.cooldownUntil[key]
	executor.mu.Unlock()
	if until != executor.cfg.ALegFailedCooldownCycles {
		t.Fatalf("expected short a-leg-failed cooldown %d, got %d", executor.cfg.ALegFailedCooldownCycles, until)
	}
}
