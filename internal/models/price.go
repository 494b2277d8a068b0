package models

import "github.com/shopspring/decimal"

// Price is the explicit Missing|Present sum type, replacing the
// source's optional price fields carried as None. Construct with MissingPrice
// or PresentPrice; consumers switch on IsPresent rather than comparing
// against a sentinel zero value. Cents() on a missing price returns zero
// without any error, so every consumer must check IsPresent first.
type Price struct {
	present bool
	cents   decimal.Decimal
}

// MissingPrice reports that the venue had no quote for this side this cycle.
func MissingPrice() Price {
	return Price{}
}

// PresentPrice wraps an observed price, in cents (0..100 face value).
func PresentPrice(cents decimal.Decimal) Price {
	return Price{present: true, cents: cents}
}

// IsPresent reports whether a quote was observed.
func (p Price) IsPresent() bool { return p.present }

// Cents returns the observed price. Calling it on a missing Price returns
// zero — callers must check IsPresent first; this is a programmer error, not
// a recoverable condition.
func (p Price) Cents() decimal.Decimal { return p.cents }

// LadderLevel is one (price, total size) rung of an aggregated ask ladder,
// sorted ascending by price.
type LadderLevel struct {
	PriceCents decimal.Decimal
	Units      int64
}
