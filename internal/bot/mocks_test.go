package bot

import (
	"context"

	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
	"arbitrage/internal/venue"
)

// fakeVenue is a hand-built venue.Client double. Each method delegates to an
// overridable function field so a test can script exactly the sequence of
// responses its scenario needs; a nil field falls back to a zero-value
// response, which is enough for the methods a given scenario never reaches.
type fakeVenue struct {
	platform models.Platform

	PlaceOrderFunc     func(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error)
	GetOrderFunc       func(ctx context.Context, orderID string) (venue.OrderStatus, error)
	CancelOrderFunc    func(ctx context.Context, orderID string) error
	GetBalanceFunc     func(ctx context.Context) (decimal.Decimal, error)
	GetMarketPriceFunc func(ctx context.Context, instrument string, side models.Side) (models.Price, error)
	GetActualFillFunc  func(ctx context.Context, orderID string, estimated int64) (int64, error)

	cancelCalls []string
}

func (f *fakeVenue) Platform() models.Platform { return f.platform }

func (f *fakeVenue) ListMarkets(ctx context.Context, opts venue.ListOptions) ([]*models.Market, error) {
	return nil, nil
}

func (f *fakeVenue) FetchLivePrices(ctx context.Context, markets []*models.Market) error {
	return nil
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	if f.PlaceOrderFunc != nil {
		return f.PlaceOrderFunc(ctx, req)
	}
	return venue.OrderResult{}, nil
}

func (f *fakeVenue) GetOrder(ctx context.Context, orderID string) (venue.OrderStatus, error) {
	if f.GetOrderFunc != nil {
		return f.GetOrderFunc(ctx, orderID)
	}
	return venue.OrderStatus{}, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelCalls = append(f.cancelCalls, orderID)
	if f.CancelOrderFunc != nil {
		return f.CancelOrderFunc(ctx, orderID)
	}
	return nil
}

func (f *fakeVenue) GetMarketPrice(ctx context.Context, instrument string, side models.Side) (models.Price, error) {
	if f.GetMarketPriceFunc != nil {
		return f.GetMarketPriceFunc(ctx, instrument, side)
	}
	return models.MissingPrice(), nil
}

func (f *fakeVenue) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if f.GetBalanceFunc != nil {
		return f.GetBalanceFunc(ctx)
	}
	return decimal.NewFromInt(1_000_000), nil
}

func (f *fakeVenue) GetActualFill(ctx context.Context, orderID string, estimated int64) (int64, error) {
	if f.GetActualFillFunc != nil {
		return f.GetActualFillFunc(ctx, orderID, estimated)
	}
	return estimated, nil
}
