package venue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/gamma"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbitrage/internal/models"
)

// VenueBConfig configures the on-chain CLOB venue client: fractional 0..1
// prices, per-outcome tokens, FOK-only orders, proxy-signed auth.
type VenueBConfig struct {
	PrivateKeyHex   string
	APIKey          string
	APISecret       string
	APIPassphrase   string
	FunderAddress   string
	ScanWindow      time.Duration
	RefreshInterval time.Duration
	WorkerPoolSize  int
	MinLegUSD       decimal.Decimal
}

func (c *VenueBConfig) applyDefaults() {
	if c.ScanWindow <= 0 {
		c.ScanWindow = 72 * time.Hour
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 2 * time.Hour
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 20
	}
	if c.MinLegUSD.IsZero() {
		c.MinLegUSD = decimal.NewFromInt(1)
	}
}

// VenueB adapts the on-chain CLOB. Token ids stand in for VenueA's ticker
// string in OrderRequest.Instrument.
type VenueB struct {
	cfg    VenueBConfig
	gamma  gamma.Client
	clob   clob.Client
	signer auth.Signer
	log    *zap.Logger

	cacheMu  sync.Mutex
	cached   []*models.Market
	cachedAt time.Time
}

// NewVenueB wires the Gamma catalog client, CLOB client and proxy signer
// from the Polymarket SDK. gammaClient/clobClient/signer are
// constructed by the caller (cmd/arbitrage) so tests can supply fakes.
func NewVenueB(cfg VenueBConfig, gammaClient gamma.Client, clobClient clob.Client, signer auth.Signer, log *zap.Logger) *VenueB {
	cfg.applyDefaults()
	return &VenueB{cfg: cfg, gamma: gammaClient, clob: clobClient, signer: signer, log: log}
}

func (v *VenueB) Platform() models.Platform { return models.PlatformB }

// ListMarkets paginates the Gamma catalog and normalizes each row into 0..N
// Markets: crypto rows via keyword-scan, sports rows emit one Market
// per outcome for 2-outcome moneylines and skip 3-outcome/draw markets.
func (v *VenueB) ListMarkets(ctx context.Context, opts ListOptions) ([]*models.Market, error) {
	v.cacheMu.Lock()
	if !opts.Force && v.cached != nil && time.Since(v.cachedAt) < v.cfg.RefreshInterval {
		cached := v.cached
		v.cacheMu.Unlock()
		return cached, nil
	}
	v.cacheMu.Unlock()

	scanWindow := opts.ScanWindow
	if scanWindow <= 0 {
		scanWindow = v.cfg.ScanWindow
	}
	cutoff := time.Now().Add(scanWindow)

	var out []*models.Market
	offset := 0
	const pageSize = 100
	active := true
	closed := false
	for {
		resp, err := v.gamma.Markets(ctx, &gamma.MarketsRequest{Limit: pageSize, Offset: offset, Active: &active, Closed: &closed})
		if err != nil {
			return nil, fmt.Errorf("gamma list markets: %w", err)
		}
		for _, raw := range resp.Data {
			endTime, err := time.Parse(time.RFC3339, raw.EndDate)
			if err != nil || endTime.After(cutoff) {
				continue
			}
			out = append(out, v.normalize(raw, endTime)...)
		}
		if len(resp.Data) < pageSize {
			break
		}
		offset += pageSize
	}

	v.cacheMu.Lock()
	v.cached = out
	v.cachedAt = time.Now()
	v.cacheMu.Unlock()
	return out, nil
}

// normalize turns one Gamma market row into zero or more Markets. A
// 2-outcome moneyline produces one Market per team, each carrying that
// team's token as yes_token_id and the opponent's as no_token_id.
// 3-outcome and draw markets are skipped.
func (v *VenueB) normalize(raw gamma.Market, endTime time.Time) []*models.Market {
	if len(raw.ClobTokenIDs) < 2 || len(raw.Outcomes) < 2 {
		return nil
	}
	if len(raw.Outcomes) == 2 && isDrawOutcome(raw.Outcomes) {
		return nil
	}

	if asset, direction, threshold, ok := NormalizeCryptoQuestion(raw.Question); ok && len(raw.Outcomes) == 2 {
		m := &models.Market{
			Platform:     models.PlatformB,
			PlatformID:   raw.ConditionID,
			PlatformURL:  "https://venue-b.example/market/" + raw.Slug,
			RawQuestion:  raw.Question,
			Category:     models.CategoryCrypto,
			Asset:        asset,
			Direction:    direction,
			Threshold:    threshold,
			ResolutionAt: endTime,
			YesTokenID:   raw.ClobTokenIDs[0],
			NoTokenID:    raw.ClobTokenIDs[1],
		}
		return []*models.Market{m}
	}

	if len(raw.Outcomes) != 2 {
		return nil
	}

	teamA := NormalizeTeamName(raw.Outcomes[0])
	teamB := NormalizeTeamName(raw.Outcomes[1])
	if teamA == "" || teamB == "" {
		return nil
	}

	subtype := models.SportSubtypeSeries
	if strings.Contains(strings.ToLower(raw.Question), "map") {
		subtype = models.SportSubtypeMap
	}

	mk := func(team, opponent, tokenYes, tokenNo string) *models.Market {
		return &models.Market{
			Platform:     models.PlatformB,
			PlatformID:   raw.ConditionID + "_" + team,
			PlatformURL:  "https://venue-b.example/market/" + raw.Slug,
			RawQuestion:  raw.Question,
			Category:     models.CategorySports,
			Sport:        raw.Sport,
			Team:         team,
			Opponent:     opponent,
			SportSubtype: subtype,
			EventID:      raw.ConditionID,
			ResolutionAt: endTime,
			YesTokenID:   tokenYes,
			NoTokenID:    tokenNo,
		}
	}

	return []*models.Market{
		mk(teamA, teamB, raw.ClobTokenIDs[0], raw.ClobTokenIDs[1]),
		mk(teamB, teamA, raw.ClobTokenIDs[1], raw.ClobTokenIDs[0]),
	}
}

func isDrawOutcome(outcomes []string) bool {
	for _, o := range outcomes {
		lower := strings.ToLower(o)
		if lower == "draw" || lower == "tie" {
			return true
		}
	}
	return false
}

// FetchLivePrices fetches each market's order book in parallel and
// aggregates the ask ladder. Venue-B's book API emits asks descending; the
// last raw entry is the best ask .
func (v *VenueB) FetchLivePrices(ctx context.Context, markets []*models.Market) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.WorkerPoolSize)

	for _, m := range markets {
		m := m
		g.Go(func() error {
			v.fetchOneMarket(gctx, m)
			return nil
		})
	}
	return g.Wait()
}

func (v *VenueB) fetchOneMarket(ctx context.Context, m *models.Market) {
	m.ResetLiveState()
	if m.YesTokenID != "" {
		v.applyBookSide(ctx, m, models.SideYes, m.YesTokenID)
	}
	if m.NoTokenID != "" {
		v.applyBookSide(ctx, m, models.SideNo, m.NoTokenID)
	}
}

func (v *VenueB) applyBookSide(ctx context.Context, m *models.Market, side models.Side, tokenID string) {
	book, err := v.clob.OrderBook(ctx, &clobtypes.BookRequest{TokenID: tokenID})
	if err != nil {
		return
	}

	raw := make([]RawLevel, 0, len(book.Asks))
	for _, lvl := range book.Asks {
		price, perr := decimal.NewFromString(lvl.Price)
		size, serr := decimal.NewFromString(lvl.Size)
		if perr != nil || serr != nil {
			continue
		}
		raw = append(raw, RawLevel{PriceCents: price.Mul(decimal.NewFromInt(100)), Units: size.IntPart()})
	}
	ladder := AggregateAsks(raw)
	ask, depth := BestAsk(ladder)

	var bid models.Price
	if len(book.Bids) > 0 {
		if p, err := decimal.NewFromString(book.Bids[0].Price); err == nil {
			bid = models.PresentPrice(p.Mul(decimal.NewFromInt(100)))
		}
	}

	if side == models.SideYes {
		m.YesAsk, m.YesAskDepth, m.YesAskLevels, m.YesBid = ask, depth, ladder, bid
	} else {
		m.NoAsk, m.NoAskDepth, m.NoAskLevels, m.NoBid = ask, depth, ladder, bid
	}
}

// PlaceOrder submits a FOK order at req.PriceCents/100 for req.Units shares
// of req.Instrument (a token id).
func (v *VenueB) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	priceFraction, _ := req.PriceCents.Div(decimal.NewFromInt(100)).Float64()
	side := "BUY"

	builder := clob.NewOrderBuilder(v.clob, v.signer).
		TokenID(req.Instrument).
		Side(side).
		Price(priceFraction).
		OrderType(clobtypes.OrderTypeFAK)

	signable, err := builder.BuildSignableWithContext(ctx)
	if err != nil {
		return OrderResult{}, fmt.Errorf("venue-b build order: %w", err)
	}
	resp, err := v.clob.CreateOrderFromSignable(ctx, signable)
	if err != nil {
		if isConflictResponse(err) {
			return OrderResult{}, fmt.Errorf("venue-b place order rejected: %w", ErrConflict)
		}
		return OrderResult{}, fmt.Errorf("venue-b place order: %w", err)
	}
	if resp.ID == "" {
		return OrderResult{}, fmt.Errorf("venue-b place order: response missing order id")
	}
	return OrderResult{OrderID: resp.ID}, nil
}

func isConflictResponse(err error) bool {
	return strings.Contains(err.Error(), "409") || strings.Contains(strings.ToLower(err.Error()), "not tradeable")
}

func (v *VenueB) GetOrder(ctx context.Context, orderID string) (OrderStatus, error) {
	resp, err := v.clob.Order(ctx, &clobtypes.OrderRequest{OrderID: orderID})
	if err != nil {
		return OrderStatus{}, fmt.Errorf("venue-b get order: %w", err)
	}
	matched, _ := decimal.NewFromString(resp.SizeMatched)
	original, _ := decimal.NewFromString(resp.OriginalSize)
	remaining := original.Sub(matched)
	status := "open"
	if strings.EqualFold(resp.Status, "CANCELED") {
		status = "cancelled"
	} else if matched.GreaterThanOrEqual(original) && !original.IsZero() {
		status = "filled"
	}
	return OrderStatus{
		OrderID:   resp.ID,
		FillCount: matched.IntPart(),
		Remaining: remaining.IntPart(),
		Status:    status,
	}, nil
}

func (v *VenueB) CancelOrder(ctx context.Context, orderID string) error {
	_, err := v.clob.CancelOrders(ctx, &clobtypes.CancelOrdersRequest{OrderIDs: []string{orderID}})
	if err != nil {
		return fmt.Errorf("venue-b cancel order: %w", err)
	}
	return nil
}

func (v *VenueB) GetMarketPrice(ctx context.Context, instrument string, side models.Side) (models.Price, error) {
	book, err := v.clob.OrderBook(ctx, &clobtypes.BookRequest{TokenID: instrument})
	if err != nil {
		return models.MissingPrice(), fmt.Errorf("venue-b get market price: %w", err)
	}
	if len(book.Bids) == 0 {
		return models.MissingPrice(), nil
	}
	p, err := decimal.NewFromString(book.Bids[0].Price)
	if err != nil {
		return models.MissingPrice(), nil
	}
	return models.PresentPrice(p.Mul(decimal.NewFromInt(100))), nil
}

func (v *VenueB) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	balance, err := v.clob.Balance(ctx, &clobtypes.BalanceRequest{Address: v.cfg.FunderAddress})
	if err != nil {
		return decimal.Zero, fmt.Errorf("venue-b get balance: %w", err)
	}
	return decimal.NewFromString(balance.USDC)
}

func (v *VenueB) GetActualFill(ctx context.Context, orderID string, estimated int64) (int64, error) {
	status, err := v.GetOrder(ctx, orderID)
	if err != nil {
		return estimated, err
	}
	return status.FillCount, nil
}
