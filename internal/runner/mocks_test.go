package runner

import (
	"context"

	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
	"arbitrage/internal/venue"
)

// fakeVenue is a minimal venue.Client double for the runner's own tests,
// scripted via function fields the same way internal/bot's fakeVenue is.
type fakeVenue struct {
	platform      models.Platform
	ListMarketsFn func(ctx context.Context, opts venue.ListOptions) ([]*models.Market, error)
	FetchPricesFn func(ctx context.Context, markets []*models.Market) error
}

func (f *fakeVenue) Platform() models.Platform { return f.platform }

func (f *fakeVenue) ListMarkets(ctx context.Context, opts venue.ListOptions) ([]*models.Market, error) {
	if f.ListMarketsFn != nil {
		return f.ListMarketsFn(ctx, opts)
	}
	return nil, nil
}

func (f *fakeVenue) FetchLivePrices(ctx context.Context, markets []*models.Market) error {
	if f.FetchPricesFn != nil {
		return f.FetchPricesFn(ctx, markets)
	}
	return nil
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	return venue.OrderResult{}, nil
}
func (f *fakeVenue) GetOrder(ctx context.Context, orderID string) (venue.OrderStatus, error) {
	return venue.OrderStatus{}, nil
}
func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error { return nil }
func (f *fakeVenue) GetMarketPrice(ctx context.Context, instrument string, side models.Side) (models.Price, error) {
	return models.MissingPrice(), nil
}
func (f *fakeVenue) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeVenue) GetActualFill(ctx context.Context, orderID string, estimated int64) (int64, error) {
	return estimated, nil
}

// fakeExecutor scripts Execute for runner tests without pulling in package bot.
type fakeExecutor struct {
	calls  int
	result models.ExecutionResult
}

func (f *fakeExecutor) Execute(ctx context.Context, op *models.Opportunity) models.ExecutionResult {
	f.calls++
	return f.result
}
