package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"arbitrage/internal/models"
	"arbitrage/internal/sizing"
	"arbitrage/internal/venue"
)

// PaperConfig tunes a PaperVenue's virtual wallet.
type PaperConfig struct {
	InitialBalanceUSD decimal.Decimal
	FeeRate           decimal.Decimal // taker fee applied to notional on every fill
}

func (c *PaperConfig) applyDefaults() {
	if c.InitialBalanceUSD.IsZero() {
		c.InitialBalanceUSD = decimal.NewFromInt(1000)
	}
}

// PaperVenue wraps a real venue.Client, passing market-data calls straight
// through to it while intercepting order placement against an in-memory
// virtual wallet. Every order fills in full at the requested price — paper
// trading models execution risk at the two-leg level (Execute's fill/unwind
// branches), not at the single-order level.
type PaperVenue struct {
	venue.Client
	cfg PaperConfig

	mu          sync.Mutex
	sequence    int64
	balance     decimal.Decimal
	feesPaidUSD decimal.Decimal
	volumeUSD   decimal.Decimal
	totalFills  int
	openOrders  map[string]venue.OrderStatus
}

func NewPaperVenue(underlying venue.Client, cfg PaperConfig) *PaperVenue {
	cfg.applyDefaults()
	return &PaperVenue{
		Client:     underlying,
		cfg:        cfg,
		balance:    cfg.InitialBalanceUSD,
		openOrders: make(map[string]venue.OrderStatus),
	}
}

func (p *PaperVenue) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

func (p *PaperVenue) FeesPaidUSD() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feesPaidUSD
}

func (p *PaperVenue) VolumeUSD() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volumeUSD
}

func (p *PaperVenue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	costUSD := req.PriceCents.Mul(decimal.NewFromInt(req.Units)).Div(decimal.NewFromInt(100))
	fee := costUSD.Mul(p.cfg.FeeRate)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balance.LessThan(costUSD.Add(fee)) {
		return venue.OrderResult{}, fmt.Errorf("paper venue: insufficient balance: need %s have %s",
			costUSD.Add(fee).StringFixed(4), p.balance.StringFixed(4))
	}

	p.sequence++
	orderID := fmt.Sprintf("PAPER-%s-%06d", req.Instrument, p.sequence)

	p.balance = p.balance.Sub(costUSD).Sub(fee)
	p.feesPaidUSD = p.feesPaidUSD.Add(fee)
	p.volumeUSD = p.volumeUSD.Add(costUSD)
	p.totalFills++

	p.openOrders[orderID] = venue.OrderStatus{
		OrderID:   orderID,
		FillCount: req.Units,
		Remaining: 0,
		Status:    "FILLED",
	}

	return venue.OrderResult{OrderID: orderID}, nil
}

func (p *PaperVenue) GetOrder(ctx context.Context, orderID string) (venue.OrderStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.openOrders[orderID]
	if !ok {
		return venue.OrderStatus{}, fmt.Errorf("paper venue: unknown order %s", orderID)
	}
	return status, nil
}

func (p *PaperVenue) CancelOrder(ctx context.Context, orderID string) error {
	return nil // every paper order fills immediately; nothing rests to cancel
}

func (p *PaperVenue) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return p.Balance(), nil
}

func (p *PaperVenue) GetActualFill(ctx context.Context, orderID string, estimated int64) (int64, error) {
	status, err := p.GetOrder(ctx, orderID)
	if err != nil {
		return estimated, err
	}
	return status.FillCount, nil
}

// PaperExecutor drives the same two-leg state machine as Executor against a
// pair of PaperVenue wallets, and keeps running best/worst-trade statistics
// for an end-of-run report.
type PaperExecutor struct {
	*Executor
	venueAPaper *PaperVenue
	venueBPaper *PaperVenue

	mu            sync.Mutex
	trades        int
	bestTradeUSD  decimal.Decimal
	worstTradeUSD decimal.Decimal
	netProfitUSD  decimal.Decimal
}

func NewPaperExecutor(venueA, venueB venue.Client, sizingCfg sizing.Config, execCfg ExecutorConfig, paperCfg PaperConfig, log *zap.Logger) *PaperExecutor {
	pa := NewPaperVenue(venueA, paperCfg)
	pb := NewPaperVenue(venueB, paperCfg)
	return &PaperExecutor{
		Executor:    NewExecutor(pa, pb, sizingCfg, execCfg, log),
		venueAPaper: pa,
		venueBPaper: pb,
	}
}

// Execute runs the underlying two-leg state machine against the paper
// wallets and folds the result into the running trade statistics.
func (p *PaperExecutor) Execute(ctx context.Context, op *models.Opportunity) models.ExecutionResult {
	result := p.Executor.Execute(ctx, op)
	if result.Status == models.StatusFilled {
		p.record(result.NetProfitUSD)
	}
	return result
}

func (p *PaperExecutor) record(netProfitUSD decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.trades == 0 || netProfitUSD.GreaterThan(p.bestTradeUSD) {
		p.bestTradeUSD = netProfitUSD
	}
	if p.trades == 0 || netProfitUSD.LessThan(p.worstTradeUSD) {
		p.worstTradeUSD = netProfitUSD
	}
	p.trades++
	p.netProfitUSD = p.netProfitUSD.Add(netProfitUSD)
}

// Report is the end-of-run summary for a paper trading session.
type Report struct {
	InitialBalanceUSD decimal.Decimal
	VenueABalanceUSD  decimal.Decimal
	VenueBBalanceUSD  decimal.Decimal
	FeesPaidUSD       decimal.Decimal
	TotalTrades       int
	BestTradeUSD      decimal.Decimal
	WorstTradeUSD     decimal.Decimal
	NetProfitUSD      decimal.Decimal
}

func (p *PaperExecutor) Report() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Report{
		InitialBalanceUSD: p.venueAPaper.cfg.InitialBalanceUSD.Add(p.venueBPaper.cfg.InitialBalanceUSD),
		VenueABalanceUSD:  p.venueAPaper.Balance(),
		VenueBBalanceUSD:  p.venueBPaper.Balance(),
		FeesPaidUSD:       p.venueAPaper.FeesPaidUSD().Add(p.venueBPaper.FeesPaidUSD()),
		TotalTrades:       p.trades,
		BestTradeUSD:      p.bestTradeUSD,
		WorstTradeUSD:     p.worstTradeUSD,
		NetProfitUSD:      p.netProfitUSD,
	}
}

// String renders the report in the human-readable form printed at the end
// of a paper trading run.
func (r Report) String() string {
	return fmt.Sprintf(
		"paper run complete: %d trades, net profit %s, fees paid %s, best trade %s, worst trade %s, venue-a balance %s, venue-b balance %s",
		r.TotalTrades,
		humanize.FormatFloat("#,###.##", mustFloat(r.NetProfitUSD)),
		humanize.FormatFloat("#,###.##", mustFloat(r.FeesPaidUSD)),
		humanize.FormatFloat("#,###.##", mustFloat(r.BestTradeUSD)),
		humanize.FormatFloat("#,###.##", mustFloat(r.WorstTradeUSD)),
		humanize.FormatFloat("#,###.##", mustFloat(r.VenueABalanceUSD)),
		humanize.FormatFloat("#,###.##", mustFloat(r.VenueBBalanceUSD)),
	)
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
