// Package venue adapts the two arbitraged exchanges' wire formats into the
// venue-neutral contract the rest of the engine depends on. Venue
// wire formats are treated as opaque outside this package: integer cents
// with key-id and timestamp request headers on one side, 0..1 fractions with FOK-only
// proxy-signed orders on the other.
package venue

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
)

// ErrConflict is the typed sentinel the executor checks with errors.Is when
// an order placement is rejected as a position-limit or not-tradeable
// conflict. The venue client is responsible for
// classifying its own wire-level error shape (an HTTP 409, a specific error
// code) and wrapping it with this sentinel; the executor never inspects
// error strings itself.
var ErrConflict = errors.New("venue: order rejected (conflict)")

// ListOptions parametrizes a catalog refresh.
type ListOptions struct {
	ScanWindow time.Duration // only markets resolving within this window are returned
	Force      bool          // bypass the client's internal TTL cache
}

// OrderAction is buy-vs-sell, orthogonal to Side (which outcome). Venue-A
// supports both; Venue-B's CLOB is always entered via a buy on the desired
// outcome token, so its adapter ignores this field.
type OrderAction string

const (
	ActionBuy  OrderAction = "buy"
	ActionSell OrderAction = "sell"
)

// OrderRequest is the venue-neutral order placement request: ticker or
// token id, canonical side, integer units, and a price expressed in cents
// (0..100 face value) regardless of which venue's native price unit that
// becomes on the wire. A zero-value Action is treated as ActionBuy.
type OrderRequest struct {
	Instrument string
	Action     OrderAction
	Side       models.Side
	Units      int64
	PriceCents decimal.Decimal
}

// OrderResult is returned by a successful PlaceOrder call.
type OrderResult struct {
	OrderID string
}

// OrderStatus is the authoritative state of a placed order (the
// "authoritative fill source" rule: FillCount plus Status, never inferred
// from Remaining alone).
type OrderStatus struct {
	OrderID   string
	FillCount int64
	Remaining int64
	Status    string // "open", "filled", "cancelled", "partially_filled"
}

// Cancelled reports whether the order is in a terminal cancelled state.
func (s OrderStatus) Cancelled() bool { return s.Status == "cancelled" }

// Client is the contract every venue adapter implements.
// FetchLivePrices mutates the Markets it is given in place: a per-market
// failure resets that market's live state to Missing rather than aborting
// the whole batch.
type Client interface {
	Platform() models.Platform

	// ListMarkets paginates the venue's catalog, returning every open
	// market resolving within opts.ScanWindow.
	ListMarkets(ctx context.Context, opts ListOptions) ([]*models.Market, error)

	// FetchLivePrices obtains current top-of-book (and, where available,
	// the full ask ladder) for every market, bounded by an internal worker
	// pool. It never returns a whole-batch error for a single market's
	// failure.
	FetchLivePrices(ctx context.Context, markets []*models.Market) error

	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	GetOrder(ctx context.Context, orderID string) (OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string) error

	// GetMarketPrice fetches a fresh single-side quote, used by the unwind
	// sub-procedure to find a current bid.
	GetMarketPrice(ctx context.Context, instrument string, side models.Side) (models.Price, error)

	GetBalance(ctx context.Context) (decimal.Decimal, error)

	// GetActualFill returns the authoritative matched size for orderID,
	// falling back to estimated only when the venue cannot report it.
	GetActualFill(ctx context.Context, orderID string, estimated int64) (int64, error)
}
