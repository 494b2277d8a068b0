package models

import "time"

// OpportunityRecord is the persisted shape of an Opportunity: every arb the
// finder detects, traded or not. Column names mirror the scanner schema this
// module's persistence layer is grounded on.
type OpportunityRecord struct {
	ID            int64
	ScannedAt     time.Time
	VenueATicker  string
	VenueBTokenID string

	VenueATitle string
	VenueBTitle string

	Strategy   string // "A" (buy VenueA-YES + VenueB-NO) or "B" (buy VenueA-NO + VenueB-YES)
	VenueASide string
	VenueBSide string

	VenueACostCents float64
	VenueBCostCents float64
	SpreadCents     float64
	Tier            string

	VenueADepth *float64
	VenueBDepth *float64

	TradeableUnits     *int64
	MaxLockedProfitUSD *float64

	HoursToClose    float64
	VenueACloseTime *time.Time
	VenueBCloseTime *time.Time

	Executed bool
}

// TradeRecord is one logged execution attempt, successful or not, optionally
// linked back to the OpportunityRecord it was sized against.
type TradeRecord struct {
	ID             int64
	OpportunityID  *int64
	TradedAt       time.Time
	VenueATicker   string
	VenueBTokenID  string
	VenueASide     string
	VenueBSide     string
	RequestedUnits int64
	VenueAFilled   *int64
	VenueBFilled   *int64

	VenueAPriceCents float64
	VenueBPriceCents float64

	VenueACostUSD   float64
	VenueBCostUSD   float64
	TotalCostUSD    float64
	LockedProfitUSD float64
	VenueAFeeUSD    *float64
	NetProfitUSD    *float64

	VenueAOrderID string
	VenueBOrderID string

	Status string
	Reason string

	VenueABalanceBefore float64
	VenueBBalanceBefore float64
}
