package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market is the venue-neutral representation of one binary outcome market.
// A Venue-A crypto market and its matched Venue-B counterpart are both
// represented by this same struct; the Category field selects which of the
// classification fields are meaningful.
type Market struct {
	// Identity.
	Platform     Platform
	PlatformID   string // unique within venue; Venue-B sports uses a synthetic event-id_team id
	PlatformURL  string
	RawQuestion  string

	// Classification.
	Category MarketCategory

	// Crypto classification.
	Asset     string
	Direction Direction
	Threshold decimal.Decimal

	// Sports classification.
	Sport        string
	Team         string
	Opponent     string
	SportSubtype SportSubtype
	EventID      string
	MapNumber    *int

	// Resolution.
	ResolutionAt time.Time

	// Live state: top of ask/bid ladder, refreshed in place on each fast tick.
	YesAsk Price
	NoAsk  Price
	YesBid Price
	NoBid  Price

	// Depth at the best-ask level only.
	YesAskDepth *int64
	NoAskDepth  *int64

	// Full ask ladder, ascending by price. Venue-B only; used for book-walk
	// sizing.
	YesAskLevels []LadderLevel
	NoAskLevels  []LadderLevel

	// Venue-B per-outcome token refs. A market missing the token for a side
	// is unactionable for that side.
	YesTokenID string
	NoTokenID  string
}

// TokenFor returns the Venue-B token id for side, or "" if the market
// carries none (unactionable for that side).
func (m *Market) TokenFor(side Side) string {
	if side == SideYes {
		return m.YesTokenID
	}
	return m.NoTokenID
}

// AskFor returns the best-ask price snapshot for side.
func (m *Market) AskFor(side Side) Price {
	if side == SideYes {
		return m.YesAsk
	}
	return m.NoAsk
}

// BidFor returns the best-bid price snapshot for side.
func (m *Market) BidFor(side Side) Price {
	if side == SideYes {
		return m.YesBid
	}
	return m.NoBid
}

// AskDepthFor returns the best-ask depth for side, or nil when unknown.
func (m *Market) AskDepthFor(side Side) *int64 {
	if side == SideYes {
		return m.YesAskDepth
	}
	return m.NoAskDepth
}

// AskLevelsFor returns the full ascending ask ladder for side (Venue-B only).
func (m *Market) AskLevelsFor(side Side) []LadderLevel {
	if side == SideYes {
		return m.YesAskLevels
	}
	return m.NoAskLevels
}

// ResetLiveState clears all live-price fields, leaving identity and
// classification untouched. Called before injecting a fresh fast-tick
// snapshot so a venue failure this cycle degrades to Missing rather than
// carrying forward a stale price.
func (m *Market) ResetLiveState() {
	m.YesAsk = MissingPrice()
	m.NoAsk = MissingPrice()
	m.YesBid = MissingPrice()
	m.NoBid = MissingPrice()
	m.YesAskDepth = nil
	m.NoAskDepth = nil
	m.YesAskLevels = nil
	m.NoAskLevels = nil
}

// BlacklistEntry excludes a crypto Asset from matching entirely, typically
// because the two venues resolve it against different oracles or strike
// conventions and a past false match cost real money.
type BlacklistEntry struct {
	ID        int64
	Asset     string
	Reason    string
	CreatedAt time.Time
}
