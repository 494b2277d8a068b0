package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is a priced trading decision snapshot produced by the finder
//: buy VenueASide on Venue-A and VenueBSide on Venue-B, whose
// combined ask cost sums to strictly less than face value.
type Opportunity struct {
	ID   string // uuid, assigned at detection; threaded through logs and persistence
	Pair *MatchedPair

	VenueASide Side
	VenueBSide Side

	VenueACostCents   decimal.Decimal
	VenueBCostCents   decimal.Decimal
	CombinedCostCents decimal.Decimal
	SpreadCents       decimal.Decimal
	Tier              Tier

	HoursToClose float64
	DetectedAt   time.Time

	VenueADepth  *int64
	VenueBDepth  *int64
	VenueBLadder []LadderLevel
}

// TierBound is one (name, lo, hi) entry of the configured tier list;
// hi is exclusive, except the top tier whose hi is open: HasHi=false means
// "no upper bound" and Hi is then ignored.
type TierBound struct {
	Name  Tier
	Lo    decimal.Decimal
	Hi    decimal.Decimal // zero value (with HasHi=false) denotes the open top tier
	HasHi bool
}

// DefaultTierBounds returns the tier thresholds used when no configuration
// overrides them: Low [0,2), Mid [2,5), High [5,10), UltraHigh [10,∞).
func DefaultTierBounds() []TierBound {
	d := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	return []TierBound{
		{Name: TierLow, Lo: d(0), Hi: d(2), HasHi: true},
		{Name: TierMid, Lo: d(2), Hi: d(5), HasHi: true},
		{Name: TierHigh, Lo: d(5), Hi: d(10), HasHi: true},
		{Name: TierUltraHigh, Lo: d(10), HasHi: false},
	}
}

// TierFor returns the first TierBound whose [lo, hi) contains spread.
// bounds must be sorted ascending by Lo; the caller is responsible for
// supplying a list whose final entry has HasHi=false.
func TierFor(spread decimal.Decimal, bounds []TierBound) Tier {
	for _, b := range bounds {
		if spread.LessThan(b.Lo) {
			continue
		}
		if !b.HasHi || spread.LessThan(b.Hi) {
			return b.Name
		}
	}
	if len(bounds) > 0 {
		return bounds[len(bounds)-1].Name
	}
	return TierLow
}
