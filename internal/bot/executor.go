package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arbitrage/internal/models"
	"arbitrage/internal/sizing"
	"arbitrage/internal/venue"
	"arbitrage/pkg/retry"
)

// ExecutorConfig tunes cooldowns, unit caps and fee assumptions for the
// two-leg state machine. Cooldowns are expressed in scan cycles, not wall
// clock time, so they scale with however fast the caller's poll loop runs.
type ExecutorConfig struct {
	NormalCooldownCycles     int64 // ordinary cooldown after any attempt that touched the market
	ALegFailedCooldownCycles int64 // short: the A leg never went live, safe to retry soon
	AConflictCooldownCycles  int64 // long: the venue rejected the order outright
	NoFillCooldownCycles     int64 // the A leg rested and filled nothing
	UnwindCooldownCycles     int64 // the B leg filled zero and the A leg had to be unwound
	MarketCapCooldownCycles  int64 // the per-market unit cap is exhausted

	PerMarketUnitCap int64 // lifetime cap per pair; never reset within the process

	VenueATakerFeeRate decimal.Decimal // e.g. 0.07 = 7% of Venue-A notional

	MaxUnwindAttempts int

	BalanceReconcileToleranceUSD decimal.Decimal // default $0.50
}

func (c *ExecutorConfig) applyDefaults() {
	if c.NormalCooldownCycles <= 0 {
		c.NormalCooldownCycles = 1
	}
	if c.ALegFailedCooldownCycles <= 0 {
		c.ALegFailedCooldownCycles = 1
	}
	if c.AConflictCooldownCycles <= 0 {
		c.AConflictCooldownCycles = 6 * c.NormalCooldownCycles
	}
	if c.NoFillCooldownCycles <= 0 {
		c.NoFillCooldownCycles = c.NormalCooldownCycles
	}
	if c.UnwindCooldownCycles <= 0 {
		c.UnwindCooldownCycles = 2 * c.NormalCooldownCycles
	}
	if c.MarketCapCooldownCycles <= 0 {
		c.MarketCapCooldownCycles = c.NoFillCooldownCycles
	}
	if c.MaxUnwindAttempts <= 0 {
		c.MaxUnwindAttempts = 3
	}
	if c.BalanceReconcileToleranceUSD.IsZero() {
		c.BalanceReconcileToleranceUSD = decimal.NewFromFloat(0.50)
	}
}

var faceValueUSD = decimal.NewFromInt(1)

// Executor runs the two-leg state machine: size against the current book,
// place the Venue-A leg, confirm its authoritative fill, then place a
// Venue-B FOK/FAK leg sized to that confirmed fill. A zero Venue-B fill
// triggers an automated unwind of the Venue-A leg; a partial Venue-B fill
// leaves a naked surplus that is logged and left for manual unwind rather
// than automatically chased.
type Executor struct {
	venueA venue.Client
	venueB venue.Client

	sizingCfg sizing.Config
	cfg       ExecutorConfig
	retryCfg  retry.Config
	log       *zap.Logger

	mu            sync.Mutex
	cycle         int64
	cooldownUntil map[[2]string]int64
	unitTally     map[[2]string]int64
}

func NewExecutor(venueA, venueB venue.Client, sizingCfg sizing.Config, cfg ExecutorConfig, log *zap.Logger) *Executor {
	cfg.applyDefaults()
	return &Executor{
		venueA:        venueA,
		venueB:        venueB,
		sizingCfg:     sizingCfg,
		cfg:           cfg,
		retryCfg:      retry.NetworkConfig(),
		log:           log,
		cooldownUntil: make(map[[2]string]int64),
		unitTally:     make(map[[2]string]int64),
	}
}

// AdvanceCycle marks one scan cycle elapsed, for cooldown bookkeeping. The
// caller (the runner's fast-poll loop) calls this once per iteration.
func (e *Executor) AdvanceCycle() {
	e.mu.Lock()
	e.cycle++
	e.mu.Unlock()
}

func (e *Executor) setCooldown(key [2]string, cycles int64) {
	e.mu.Lock()
	e.cooldownUntil[key] = e.cycle + cycles
	e.mu.Unlock()
}

func (e *Executor) addUnitTally(key [2]string, units int64) {
	e.mu.Lock()
	e.unitTally[key] += units
	e.mu.Unlock()
}

// UnitsTraded reports the lifetime unit tally for a pair, for reporting and
// operator tooling.
func (e *Executor) UnitsTraded(key [2]string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unitTally[key]
}

// Execute attempts to trade op, returning a terminal ExecutionResult. It
// never panics or returns an error for an expected rejection path — those
// are all represented as a typed SkipReason on the result.
func (e *Executor) Execute(ctx context.Context, op *models.Opportunity) models.ExecutionResult {
	key := op.Pair.Key()

	e.mu.Lock()
	cycle := e.cycle
	until, onCooldown := e.cooldownUntil[key]
	tally := e.unitTally[key]
	e.mu.Unlock()

	if onCooldown && cycle < until {
		return models.Skipped(models.ReasonOnCooldown)
	}

	remainingCap := e.cfg.PerMarketUnitCap - tally
	if e.cfg.PerMarketUnitCap > 0 && remainingCap <= 0 {
		e.setCooldown(key, e.cfg.MarketCapCooldownCycles)
		return models.Skipped(models.ReasonMarketCapReached)
	}
	if e.cfg.PerMarketUnitCap <= 0 {
		remainingCap = 1_000_000
	}

	plan := sizing.Size(e.sizingCfg, op.VenueACostCents, op.VenueADepth, op.VenueBLadder, remainingCap)
	if !plan.Accepted {
		reason := models.ReasonInsufficientUnits
		if plan.RejectReason == "no longer profitable after book walk" {
			reason = models.ReasonUnprofitableSizing
		}
		return models.Skipped(reason)
	}

	bCostUSD := plan.VenueBPriceCents.Mul(decimal.NewFromInt(plan.Units)).Div(decimal.NewFromInt(100))
	bBalanceBefore, err := e.venueB.GetBalance(ctx)
	if err != nil {
		return models.ErrorResult(models.ReasonBBalanceCheckFailed)
	}
	if bBalanceBefore.LessThan(bCostUSD) {
		e.setCooldown(key, e.cfg.NormalCooldownCycles)
		return models.Skipped(models.ReasonBInsufficientBalance)
	}

	aBalanceBefore, _ := e.venueA.GetBalance(ctx)

	aOrder, err := e.venueA.PlaceOrder(ctx, venue.OrderRequest{
		Instrument: op.Pair.VenueA.PlatformID,
		Action:     venue.ActionBuy,
		Side:       op.VenueASide,
		Units:      plan.Units,
		PriceCents: plan.VenueAPriceCents,
	})
	if err != nil {
		if errors.Is(err, venue.ErrConflict) {
			e.setCooldown(key, e.cfg.AConflictCooldownCycles)
			return models.Skipped(models.ReasonAConflict)
		}
		e.setCooldown(key, e.cfg.ALegFailedCooldownCycles)
		return models.Skipped(models.ReasonALegFailed)
	}
	if aOrder.OrderID == "" {
		return models.ErrorResult(models.ReasonANoOrderID)
	}

	// Authoritative fill source: fill_count plus status, never inferred from
	// remaining==0 alone.
	aStatus, err := e.venueA.GetOrder(ctx, aOrder.OrderID)
	if err != nil {
		return models.ErrorResult(models.ReasonANoFill)
	}
	if aStatus.FillCount <= 0 {
		_ = e.venueA.CancelOrder(ctx, aOrder.OrderID)
		e.setCooldown(key, e.cfg.NoFillCooldownCycles)
		return models.Skipped(models.ReasonANoFill)
	}
	if aStatus.Remaining > 0 {
		_ = e.venueA.CancelOrder(ctx, aOrder.OrderID) // best-effort; already-filled units stand regardless
	}

	filledUnits := aStatus.FillCount
	e.addUnitTally(key, filledUnits)

	bOrder, bErr := e.venueB.PlaceOrder(ctx, venue.OrderRequest{
		Instrument: op.Pair.VenueB.TokenFor(op.VenueBSide),
		Action:     venue.ActionBuy,
		Side:       op.VenueBSide,
		Units:      filledUnits,
		PriceCents: plan.VenueBPriceCents,
	})

	var bFill int64
	var bOrderID string
	if bErr == nil {
		bOrderID = bOrder.OrderID
		bFill, _ = e.venueB.GetActualFill(ctx, bOrder.OrderID, filledUnits)
	}

	aCostUSD := plan.VenueAPriceCents.Mul(decimal.NewFromInt(filledUnits)).Div(decimal.NewFromInt(100))
	aFeeUSD := aCostUSD.Mul(e.cfg.VenueATakerFeeRate)

	if bErr != nil || bFill == 0 {
		recovered, unwindErr := e.unwind(ctx, op, filledUnits)
		e.setCooldown(key, e.cfg.UnwindCooldownCycles)

		status := models.StatusUnwound
		if unwindErr != nil {
			status = models.StatusPartialStuck
			e.log.Error("unwind did not fully recover the venue-a leg; manual intervention required",
				zap.String("pair_id", op.Pair.ID), zap.Int64("units", filledUnits), zap.Error(unwindErr))
		}

		return models.ExecutionResult{
			Status:              status,
			Reason:              models.ReasonBZeroFill,
			Units:               filledUnits,
			VenueAOrderID:       aOrder.OrderID,
			VenueACostUSD:       aCostUSD,
			VenueAFeeUSD:        aFeeUSD,
			UnwindRecoveredUSD:  recovered,
			VenueABalanceBefore: aBalanceBefore,
			VenueBBalanceBefore: bBalanceBefore,
		}
	}

	if bFill < filledUnits {
		surplus := filledUnits - bFill
		e.log.Warn("venue-b leg partially filled; naked venue-a surplus left for manual unwind",
			zap.String("pair_id", op.Pair.ID), zap.Int64("filled_units", filledUnits),
			zap.Int64("venue_b_fill", bFill), zap.Int64("surplus_units", surplus))

		bCostActualUSD := plan.VenueBPriceCents.Mul(decimal.NewFromInt(bFill)).Div(decimal.NewFromInt(100))
		return models.ExecutionResult{
			Status:        models.StatusPartialStuck,
			Units:         bFill,
			VenueAOrderID: aOrder.OrderID,
			VenueBOrderID: bOrderID,
			VenueACostUSD: aCostUSD,
			VenueBCostUSD: bCostActualUSD,
			VenueAFeeUSD:  aFeeUSD,
		}
	}

	bCostActualUSD := plan.VenueBPriceCents.Mul(decimal.NewFromInt(bFill)).Div(decimal.NewFromInt(100))
	totalCost := aCostUSD.Add(aFeeUSD).Add(bCostActualUSD)
	payout := decimal.NewFromInt(filledUnits).Mul(faceValueUSD) // one side always wins: filledUnits units, $1 each
	netProfit := payout.Sub(totalCost)

	e.setCooldown(key, e.cfg.NormalCooldownCycles)

	aBalanceAfter, _ := e.venueA.GetBalance(ctx)
	bBalanceAfter, _ := e.venueB.GetBalance(ctx)
	e.reconcileBalance(op.Pair.ID, "venue-a", aBalanceBefore.Sub(aBalanceAfter), aCostUSD.Add(aFeeUSD))
	e.reconcileBalance(op.Pair.ID, "venue-b", bBalanceBefore.Sub(bBalanceAfter), bCostActualUSD)

	return models.ExecutionResult{
		Status:              models.StatusFilled,
		Units:               filledUnits,
		VenueAOrderID:       aOrder.OrderID,
		VenueBOrderID:       bOrderID,
		VenueACostUSD:       aCostUSD,
		VenueBCostUSD:       bCostActualUSD,
		TotalCostUSD:        totalCost,
		GrossProfitUSD:      payout.Sub(aCostUSD).Sub(bCostActualUSD),
		NetProfitUSD:        netProfit,
		VenueAFeeUSD:        aFeeUSD,
		VenueABalanceBefore: aBalanceBefore,
		VenueABalanceAfter:  aBalanceAfter,
		VenueBBalanceBefore: bBalanceBefore,
		VenueBBalanceAfter:  bBalanceAfter,
	}
}

// reconcileBalance logs a warning, never an error, when the observed balance
// delta disagrees with the expected cost by more than the configured
// tolerance: venue-side rounding and fee timing can account for a few cents,
// and a reconciliation mismatch alone should not block trading.
func (e *Executor) reconcileBalance(pairID, venueName string, observedDelta, expectedDelta decimal.Decimal) {
	diff := observedDelta.Sub(expectedDelta).Abs()
	if diff.GreaterThan(e.cfg.BalanceReconcileToleranceUSD) {
		e.log.Warn("balance reconciliation mismatch beyond tolerance",
			zap.String("pair_id", pairID), zap.String("venue", venueName),
			zap.String("observed_delta", observedDelta.String()),
			zap.String("expected_delta", expectedDelta.String()),
			zap.String("diff", diff.String()))
	}
}

// unwind sells down a naked Venue-A position after the Venue-B hedge leg
// filled zero. It retries against the current bid for up to
// cfg.MaxUnwindAttempts rounds, reducing the outstanding amount by whatever
// partially fills each round.
func (e *Executor) unwind(ctx context.Context, op *models.Opportunity, units int64) (decimal.Decimal, error) {
	remaining := units
	recovered := decimal.Zero

	cfg := e.retryCfg
	cfg.MaxRetries = e.cfg.MaxUnwindAttempts
	cfg.RetryIf = func(error) bool { return remaining > 0 }

	attempt := 0
	err := retry.Do(ctx, func() error {
		attempt++
		price, err := e.venueA.GetMarketPrice(ctx, op.Pair.VenueA.PlatformID, op.VenueASide)
		if err != nil || !price.IsPresent() {
			return fmt.Errorf("unwind attempt %d: no current price: %w", attempt, err)
		}

		res, err := e.venueA.PlaceOrder(ctx, venue.OrderRequest{
			Instrument: op.Pair.VenueA.PlatformID,
			Action:     venue.ActionSell,
			Side:       op.VenueASide,
			Units:      remaining,
			PriceCents: price.Cents(),
		})
		if err != nil {
			return fmt.Errorf("unwind attempt %d: place order: %w", attempt, err)
		}

		status, err := e.venueA.GetOrder(ctx, res.OrderID)
		if err != nil {
			return fmt.Errorf("unwind attempt %d: get order: %w", attempt, err)
		}

		if status.FillCount > 0 {
			recovered = recovered.Add(price.Cents().Mul(decimal.NewFromInt(status.FillCount)).Div(decimal.NewFromInt(100)))
			remaining -= status.FillCount
		}
		if status.Remaining > 0 {
			_ = e.venueA.CancelOrder(ctx, res.OrderID)
		}

		if remaining > 0 {
			return fmt.Errorf("unwind attempt %d: %d units still outstanding", attempt, remaining)
		}
		return nil
	}, cfg)

	if remaining > 0 {
		return recovered, fmt.Errorf("unwind left %d of %d units unrecovered: %w", remaining, units, err)
	}
	return recovered, nil
}

// ManualUnwind is an operator escape hatch: force the unwind sub-procedure
// for a pair outside the normal 0-fill path, e.g. after an operator notices
// a partial-fill surplus logged by Execute. It does not consult or mutate
// cooldown state.
func (e *Executor) ManualUnwind(ctx context.Context, op *models.Opportunity, units int64) (decimal.Decimal, error) {
	return e.unwind(ctx, op, units)
}
