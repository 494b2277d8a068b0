package sizing

import (
	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
)

// Config tunes how a trade is sized against Venue-B's minimum order notional
// and the per-trade dollar budget.
type Config struct {
	MinOrderUSD      decimal.Decimal // Venue-B's minimum notional per order; default $1
	MaxTradeUSD      decimal.Decimal // combined-leg dollar budget per trade; default $50
	MaxUnitsPerTrade int64           // hard cap independent of any per-market cap
}

func (c *Config) applyDefaults() {
	if c.MinOrderUSD.IsZero() {
		c.MinOrderUSD = decimal.NewFromInt(1)
	}
	if c.MaxTradeUSD.IsZero() {
		c.MaxTradeUSD = decimal.NewFromInt(50)
	}
	if c.MaxUnitsPerTrade <= 0 {
		c.MaxUnitsPerTrade = 1_000_000
	}
}

// Plan is the outcome of sizing one candidate trade.
type Plan struct {
	Accepted          bool
	RejectReason      string
	Units             int64
	VenueAPriceCents  decimal.Decimal
	VenueBPriceCents  decimal.Decimal // blended average across whatever levels were walked
	CombinedCostCents decimal.Decimal
}

var faceValue = decimal.NewFromInt(100)

// Size determines how many units to buy given Venue-A's flat best-ask price
// (Venue-A fills at the quoted top of book regardless of size) and Venue-B's
// ask ladder. Venue-B enforces a minimum order notional; when the top of
// book alone doesn't meet it, Size walks successive ladder levels —
// consuming each level in full — accumulating a blended average price, until
// the cumulative notional clears the minimum or the available units run out.
//
// Unit count starts from the dollar budget cfg.MaxTradeUSD divided by the
// top-of-book combined cost per unit (⌊max_trade_usd / combined_usd_per_unit⌋),
// then is bounded by unitCapRemaining (the per-market cap still available
// this process) and cfg.MaxUnitsPerTrade; aDepth, if non-nil, additionally
// bounds it to Venue-A's own best-ask depth, since the two legs must trade
// the same unit count.
func Size(cfg Config, aAskCents decimal.Decimal, aDepth *int64, bLadder []models.LadderLevel, unitCapRemaining int64) Plan {
	cfg.applyDefaults()

	if len(bLadder) == 0 {
		return Plan{RejectReason: "no venue-b liquidity"}
	}

	combinedTopOfBookCents := aAskCents.Add(bLadder[0].PriceCents)
	if !combinedTopOfBookCents.IsPositive() {
		return Plan{RejectReason: "no venue-b liquidity"}
	}
	budgetCents := cfg.MaxTradeUSD.Mul(decimal.NewFromInt(100))
	cap := budgetCents.Div(combinedTopOfBookCents).IntPart()

	if unitCapRemaining < cap {
		cap = unitCapRemaining
	}
	if cfg.MaxUnitsPerTrade < cap {
		cap = cfg.MaxUnitsPerTrade
	}
	if aDepth != nil && *aDepth < cap {
		cap = *aDepth
	}
	if cap <= 0 {
		return Plan{RejectReason: "no available unit capacity"}
	}

	targetCents := cfg.MinOrderUSD.Mul(decimal.NewFromInt(100))

	var units int64
	totalCostCents := decimal.Zero
	for _, level := range bLadder {
		if units >= cap {
			break
		}
		take := level.Units
		if units+take > cap {
			take = cap - units
		}
		totalCostCents = totalCostCents.Add(level.PriceCents.Mul(decimal.NewFromInt(take)))
		units += take
		if totalCostCents.GreaterThanOrEqual(targetCents) {
			break
		}
	}

	if units == 0 || totalCostCents.LessThan(targetCents) {
		return Plan{RejectReason: "insufficient venue-b depth to meet minimum order size"}
	}

	blended := totalCostCents.Div(decimal.NewFromInt(units))
	combined := aAskCents.Add(blended)
	if !combined.LessThan(faceValue) {
		return Plan{RejectReason: "no longer profitable after book walk"}
	}

	return Plan{
		Accepted:          true,
		Units:             units,
		VenueAPriceCents:  aAskCents,
		VenueBPriceCents:  blended,
		CombinedCostCents: combined,
	}
}
